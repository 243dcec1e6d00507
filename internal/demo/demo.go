// Package demo fakes the monitoring backend in memory so the dashboard can
// be exercised without the real service: the same handlers run against it,
// and a feeder goroutine generates matches and log lines while "monitoring"
// is running.
package demo

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/model"
	"github.com/xca-bot/xcaboard/internal/state"
)

const (
	matchKeep   = 200
	defaultTick = 3 * time.Second
)

var (
	sampleUsers    = []string{"whale_alerts", "solana_launches", "gem_hunter_ca"}
	samplePatterns = []string{`[1-9A-HJ-NP-Za-km-z]{32,44}`, `0x[a-fA-F0-9]{40}`}
	sampleKeywords = []string{"launch", "stealth", "CA"}

	sampleTexts = []string{
		"Stealth launch is live. CA: {addr} - do your own research.",
		"New gem just dropped {addr} LP locked, ownership renounced.",
		"This one is moving fast. {addr} get in before the crowd.",
		"CA {addr} - dev is based, community takeover complete.",
		"Launching in 5 minutes. Contract: {addr}",
	}
)

// Backend holds the simulated monitoring state behind the same method set
// the real REST client exposes.
type Backend struct {
	mu        sync.Mutex
	running   bool
	startedAt time.Time
	lastCheck time.Time
	cfg       model.AppConfig
	matches   []model.Match
	total     int
	logs      []string
	nextID    int64
}

func New() *Backend {
	b := &Backend{
		running:   true,
		startedAt: time.Now(),
		lastCheck: time.Now(),
		cfg: model.AppConfig{
			Telegram: model.TelegramConfig{
				BotToken:         "1234567890:DEMO-TOKEN",
				ChannelID:        "@xca_alerts_demo",
				IncludeTweetText: true,
				ForwardingDestinations: []model.TelegramDestination{
					{ChatID: "-1001234567890", Description: "ops channel"},
				},
			},
			Monitoring: model.MonitoringConfig{
				CheckIntervalMinutes: 15,
				Usernames:            append([]string(nil), sampleUsers...),
				RegexPatterns:        append([]string(nil), samplePatterns...),
				Keywords:             append([]string(nil), sampleKeywords...),
			},
		},
	}
	b.appendLogLocked("INFO", "Demo mode active, all data is generated")
	b.appendLogLocked("INFO", "Monitoring started")
	for i, user := range sampleUsers {
		m := b.generateMatchLocked(user)
		// Spread the seed matches back in time so "today" is a real subset.
		m.Timestamp = time.Now().Add(-time.Duration(i*26) * time.Hour).Format("2006-01-02T15:04:05")
		b.matches[0] = m
	}
	return b
}

// Run feeds the store with generated activity until ctx is canceled. It
// replaces the syncer in demo mode, so it also marks all stream channels
// live.
func (b *Backend) Run(ctx context.Context, store *state.Store, tick time.Duration) {
	if tick <= 0 {
		tick = defaultTick
	}
	slog.Info("demo backend running", "tick", tick)

	for _, ch := range []string{backend.ChannelStatus, backend.ChannelMatches, backend.ChannelLogs} {
		store.SetChannelState(ch, backend.StateStreaming)
	}
	b.push(store)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("demo backend stopped")
			return
		case <-ticker.C:
			b.step(store)
		}
	}
}

// push loads the full simulated state into the store, mirroring the
// syncer's bootstrap.
func (b *Backend) push(store *state.Store) {
	b.mu.Lock()
	status := b.statusLocked()
	matches := make([]model.Match, len(b.matches))
	copy(matches, b.matches)
	total := b.total
	lines := make([]model.LogLine, 0, len(b.logs))
	for _, l := range b.logs {
		lines = append(lines, model.NewLogLine(l))
	}
	b.mu.Unlock()

	store.SetStatus(*status)
	store.SetMatches(matches, total)
	store.SetLogs(lines)
}

// step advances the simulation one tick. Store writes happen after the lock
// is released.
func (b *Backend) step(store *state.Store) {
	var added []string
	var match *model.Match

	b.mu.Lock()
	if b.running {
		b.lastCheck = time.Now()
		user := b.pickUserLocked()
		added = append(added, b.appendLogLocked("INFO", "Checking @"+user+" for new tweets"))
		switch {
		case rand.Intn(4) == 0:
			m := b.generateMatchLocked(user)
			match = &m
			added = append(added,
				b.appendLogLocked("INFO", fmt.Sprintf("Found contract address in tweet %s by @%s", m.TweetID, user)),
				b.appendLogLocked("INFO", "Forwarded alert to "+b.cfg.Telegram.ChannelID))
		case rand.Intn(12) == 0:
			added = append(added, b.appendLogLocked("WARNING", "Twitter rate limit approaching, backing off"))
		}
	}
	status := b.statusLocked()
	b.mu.Unlock()

	store.SetStatus(*status)
	if match != nil {
		store.ApplyMatch(*match)
	}
	for _, line := range added {
		store.AppendLog(model.NewLogLine(line))
	}
}

func (b *Backend) pickUserLocked() string {
	users := b.cfg.Monitoring.Usernames
	if len(users) == 0 {
		return sampleUsers[rand.Intn(len(sampleUsers))]
	}
	return users[rand.Intn(len(users))]
}

// appendLogLocked formats lines the way the real backend's logger does, so
// level inference and rendering behave identically in demo mode.
func (b *Backend) appendLogLocked(level, msg string) string {
	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("2006-01-02 15:04:05"), level, msg)
	b.logs = append(b.logs, line)
	if len(b.logs) > 1000 {
		b.logs = b.logs[len(b.logs)-1000:]
	}
	return line
}

func (b *Backend) generateMatchLocked(user string) model.Match {
	b.nextID++
	b.total++
	addr := randomAddress()
	text := strings.ReplaceAll(sampleTexts[rand.Intn(len(sampleTexts))], "{addr}", addr)
	tweetID := fmt.Sprintf("%d", time.Now().UnixNano()/1000+b.nextID)

	m := model.Match{
		ID:                b.nextID,
		Username:          user,
		TweetID:           tweetID,
		TweetText:         text,
		MatchedPatterns:   []string{patternFor(addr)},
		ContractAddresses: []string{addr},
		Timestamp:         time.Now().Format("2006-01-02T15:04:05"),
		TweetURL:          fmt.Sprintf("https://x.com/%s/status/%s", user, tweetID),
	}
	b.matches = append([]model.Match{m}, b.matches...)
	if len(b.matches) > matchKeep {
		b.matches = b.matches[:matchKeep]
	}
	return m
}

const (
	base58Chars = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	hexChars    = "0123456789abcdef"
)

func randomAddress() string {
	if rand.Intn(2) == 0 {
		var sb strings.Builder
		for i := 0; i < 44; i++ {
			sb.WriteByte(base58Chars[rand.Intn(len(base58Chars))])
		}
		return sb.String()
	}
	var sb strings.Builder
	sb.WriteString("0x")
	for i := 0; i < 40; i++ {
		sb.WriteByte(hexChars[rand.Intn(len(hexChars))])
	}
	return sb.String()
}

func patternFor(addr string) string {
	if strings.HasPrefix(addr, "0x") {
		return samplePatterns[1]
	}
	return samplePatterns[0]
}

func (b *Backend) statusLocked() *model.MonitoringStatus {
	st := &model.MonitoringStatus{
		IsRunning:      b.running,
		MonitoredUsers: len(b.cfg.Monitoring.Usernames),
		RegexPatterns:  len(b.cfg.Monitoring.RegexPatterns),
		Keywords:       len(b.cfg.Monitoring.Keywords),
		CheckInterval:  b.cfg.Monitoring.CheckIntervalMinutes,
		TwitterStatus:  model.ParseServiceStatus("connected"),
		TelegramStatus: model.ParseServiceStatus("connected"),
	}
	if b.running {
		st.Uptime = time.Since(b.startedAt).Round(time.Second).String()
		st.LastCheck = b.lastCheck.Format(time.RFC3339)
		interval := time.Duration(b.cfg.Monitoring.CheckIntervalMinutes) * time.Minute
		st.NextRun = b.lastCheck.Add(interval).Format(time.RFC3339)
	}
	return st
}
