package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/model"
)

const (
	// DefaultMatchLimit caps the recent-matches list shown on the dashboard.
	DefaultMatchLimit = 10
	// DefaultLogLimit caps the in-memory log buffer. The backend keeps its
	// own history; this bound only protects the dashboard process.
	DefaultLogLimit = 500
)

// Snapshot is one self-contained copy of the dashboard state. Snapshots are
// safe to marshal and hand to other goroutines; they share nothing with the
// store.
type Snapshot struct {
	Status       model.MonitoringStatus `json:"status"`
	Matches      []model.Match          `json:"matches"`
	TotalMatches int                    `json:"total_matches"`
	MatchesToday int                    `json:"matches_today"`
	Logs         []model.LogLine        `json:"logs"`
	Channels     map[string]string      `json:"channels"`
	BackendDown  bool                   `json:"backend_down"`
	LastError    string                 `json:"last_error,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Store is the single reconciled view of the backend that the dashboard
// renders. The stream client, the poller and the request handlers all write
// into it; WebSocket sessions read snapshots out of it. Writes replace whole
// slices of state, so the last writer wins.
type Store struct {
	mu sync.Mutex

	status   model.MonitoringStatus
	matches  []model.Match
	total    int
	logs     []model.LogLine
	channels map[string]backend.ChannelState
	down     bool
	lastErr  string
	updated  time.Time

	matchLimit int
	logLimit   int

	subs    map[chan Snapshot]struct{}
	dropped atomic.Int64

	now func() time.Time
}

// New builds an empty store. Non-positive limits fall back to the package
// defaults.
func New(matchLimit, logLimit int) *Store {
	if matchLimit <= 0 {
		matchLimit = DefaultMatchLimit
	}
	if logLimit <= 0 {
		logLimit = DefaultLogLimit
	}
	return &Store{
		channels:   make(map[string]backend.ChannelState),
		matchLimit: matchLimit,
		logLimit:   logLimit,
		subs:       make(map[chan Snapshot]struct{}),
		now:        time.Now,
	}
}

// SetStatus replaces the monitoring status wholesale. No field-level merge
// happens: a stream event that carries fewer fields than a /status response
// still wins outright.
func (s *Store) SetStatus(status model.MonitoringStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.touchLocked()
}

// ApplyMatch prepends one streamed match. A match whose key is already
// displayed is ignored rather than duplicated, and the list is trimmed to
// the display cap from the tail.
func (s *Store) ApplyMatch(m model.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.Key()
	for _, existing := range s.matches {
		if existing.Key() == key {
			return
		}
	}

	s.matches = append([]model.Match{m}, s.matches...)
	if len(s.matches) > s.matchLimit {
		s.matches = s.matches[:s.matchLimit]
	}
	s.total++
	s.touchLocked()
}

// SetMatches replaces the match list with a fetched page, newest first, and
// records the backend's total match count.
func (s *Store) SetMatches(matches []model.Match, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.matches = append([]model.Match(nil), matches...)
	if len(s.matches) > s.matchLimit {
		s.matches = s.matches[:s.matchLimit]
	}
	s.total = total
	s.touchLocked()
}

// AppendLog adds one log line, dropping the oldest lines once the buffer is
// full.
func (s *Store) AppendLog(line model.LogLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, line)
	if len(s.logs) > s.logLimit {
		s.logs = s.logs[len(s.logs)-s.logLimit:]
	}
	s.touchLocked()
}

// SetLogs replaces the log buffer with fetched history, keeping only the
// newest lines when the history exceeds the buffer bound.
func (s *Store) SetLogs(lines []model.LogLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(lines) > s.logLimit {
		lines = lines[len(lines)-s.logLimit:]
	}
	s.logs = append([]model.LogLine(nil), lines...)
	s.touchLocked()
}

// ClearLogs empties the log buffer.
func (s *Store) ClearLogs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = nil
	s.touchLocked()
}

// SetChannelState records a stream channel's connection state.
func (s *Store) SetChannelState(channel string, st backend.ChannelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channels[channel] == st {
		return
	}
	s.channels[channel] = st
	s.touchLocked()
}

// ChannelState reports the recorded connection state for one channel.
func (s *Store) ChannelState(channel string) backend.ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[channel]
}

// SetBackendError raises the consolidated connection banner. Individual
// failed calls all funnel into this one flag so the dashboard shows a single
// banner, not one per request.
func (s *Store) SetBackendError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down && s.lastErr == msg {
		return
	}
	s.down = true
	s.lastErr = msg
	s.touchLocked()
}

// ClearBackendError lowers the connection banner after a successful call or
// stream event.
func (s *Store) ClearBackendError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.down && s.lastErr == "" {
		return
	}
	s.down = false
	s.lastErr = ""
	s.touchLocked()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Dropped reports how many stale snapshots were replaced in subscriber
// mailboxes because the subscriber lagged.
func (s *Store) Dropped() int64 {
	return s.dropped.Load()
}

// Subscribe registers a snapshot mailbox holding only the latest snapshot:
// when a subscriber lags, the stale snapshot is replaced, never queued. The
// mailbox is primed with the current state. The returned cancel func
// unregisters and closes the channel; it is safe to call more than once.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// touchLocked stamps the state and pushes a fresh snapshot to every
// subscriber. Sends never block: a full mailbox has its stale snapshot
// swapped for the new one.
func (s *Store) touchLocked() {
	s.updated = s.now()
	snap := s.snapshotLocked()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
				s.dropped.Add(1)
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	channels := make(map[string]string, len(s.channels))
	for name, st := range s.channels {
		channels[name] = st.String()
	}

	// Collections are never nil so an empty store still marshals them as
	// [] for the frontend.
	matches := make([]model.Match, len(s.matches))
	copy(matches, s.matches)
	logs := make([]model.LogLine, len(s.logs))
	copy(logs, s.logs)

	return Snapshot{
		Status:       s.status,
		Matches:      matches,
		TotalMatches: s.total,
		MatchesToday: s.matchesTodayLocked(),
		Logs:         logs,
		Channels:     channels,
		BackendDown:  s.down,
		LastError:    s.lastErr,
		UpdatedAt:    s.updated,
	}
}

// matchesTodayLocked counts displayed matches whose local calendar date is
// today. Derived on every snapshot, never streamed.
func (s *Store) matchesTodayLocked() int {
	y, m, d := s.now().Date()
	count := 0
	for _, match := range s.matches {
		ts, ok := match.Time()
		if !ok {
			continue
		}
		ty, tm, td := ts.Date()
		if ty == y && tm == m && td == d {
			count++
		}
	}
	return count
}
