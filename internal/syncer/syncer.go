package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/valyala/fastjson"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/model"
	"github.com/xca-bot/xcaboard/internal/state"
)

var (
	ErrAlreadyRunning = errors.New("syncer already running")
	ErrNotRunning     = errors.New("syncer not running")
)

// Log payloads arrive at stream rate, so they are parsed with a pooled
// parser instead of encoding/json.
var logParsers fastjson.ParserPool

// Syncer keeps the state store aligned with the backend: it bootstraps the
// store over REST, follows the three event stream channels, and falls back
// to polling /status whenever the status stream is not live.
type Syncer struct {
	client *backend.Client
	store  *state.Store

	pollInterval time.Duration
	matchLimit   int
	logLimit     int

	retryAttempts int
	retryDelay    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(client *backend.Client, store *state.Store, pollInterval time.Duration, matchLimit, logLimit int) *Syncer {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if matchLimit <= 0 {
		matchLimit = state.DefaultMatchLimit
	}
	if logLimit <= 0 {
		logLimit = state.DefaultLogLimit
	}
	return &Syncer{
		client:        client,
		store:         store,
		pollInterval:  pollInterval,
		matchLimit:    matchLimit,
		logLimit:      logLimit,
		retryAttempts: 3,
		retryDelay:    500 * time.Millisecond,
	}
}

// Start launches the background sync loop.
// The goroutine uses a context derived from context.Background so it
// survives after the calling HTTP request completes.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	syncCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(syncCtx)
	return nil
}

// Stop halts the sync loop and waits for the stream subscriptions to close,
// so a Stop/Start cycle never holds two connections to the same channel.
func (s *Syncer) Stop(_ context.Context) error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.cancel()
	s.cancel = nil
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// IsRunning returns whether the sync loop is active.
func (s *Syncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Syncer) run(ctx context.Context) {
	defer s.wg.Done()

	slog.Info("syncer started",
		"backend", s.client.BaseURL(),
		"poll_interval", s.pollInterval,
	)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("syncer goroutine panicked", "error", r, "stack", string(debug.Stack()))
			s.mu.Lock()
			s.cancel = nil
			s.mu.Unlock()
		}
	}()

	s.bootstrap(ctx)

	subs := []*backend.Subscription{
		s.client.Subscribe(ctx, backend.ChannelStatus, backend.SubscribeOptions{
			OnEvent: s.onStatusEvent,
			OnError: s.onStreamError,
			OnState: func(st backend.ChannelState) {
				s.store.SetChannelState(backend.ChannelStatus, st)
			},
		}),
		s.client.Subscribe(ctx, backend.ChannelMatches, backend.SubscribeOptions{
			OnEvent: s.onMatchEvent,
			OnError: s.onStreamError,
			OnState: func(st backend.ChannelState) {
				s.store.SetChannelState(backend.ChannelMatches, st)
			},
		}),
		s.client.Subscribe(ctx, backend.ChannelLogs, backend.SubscribeOptions{
			OnEvent: s.onLogEvent,
			OnError: s.onStreamError,
			OnState: func(st backend.ChannelState) {
				s.store.SetChannelState(backend.ChannelLogs, st)
			},
		}),
	}
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// The stream keeps status fresh on its own; polling only covers
			// the window where the status channel is down.
			if s.store.ChannelState(backend.ChannelStatus) != backend.StateStreaming {
				s.refreshStatus(ctx)
			}
		}
	}
}

// bootstrap fills the store with current status, recent matches and log
// history before the streams take over. Failures are reported and left for
// the streams and the poll loop to repair; they never abort the syncer.
func (s *Syncer) bootstrap(ctx context.Context) {
	err := backend.Retry(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
		status, err := s.client.Status(ctx)
		if err != nil {
			return err
		}
		s.store.SetStatus(*status)
		return nil
	})
	if err != nil {
		s.reportFetchError("bootstrap status", err)
	} else {
		s.store.ClearBackendError()
	}

	err = backend.Retry(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
		matches, total, err := s.client.Matches(ctx, s.matchLimit)
		if err != nil {
			return err
		}
		s.store.SetMatches(matches, total)
		return nil
	})
	if err != nil {
		s.reportFetchError("bootstrap matches", err)
	}

	err = backend.Retry(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
		raw, err := s.client.Logs(ctx, s.logLimit)
		if err != nil {
			return err
		}
		lines := make([]model.LogLine, 0, len(raw))
		for _, text := range raw {
			lines = append(lines, model.NewLogLine(text))
		}
		s.store.SetLogs(lines)
		return nil
	})
	if err != nil {
		s.reportFetchError("bootstrap logs", err)
	}
}

func (s *Syncer) refreshStatus(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, backend.DefaultTimeout)
	defer cancel()

	status, err := s.client.Status(ctx)
	if err != nil {
		s.reportFetchError("poll status", err)
		return
	}
	s.store.SetStatus(*status)
	s.store.ClearBackendError()
}

func (s *Syncer) onStatusEvent(data []byte) error {
	var status model.MonitoringStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return fmt.Errorf("decode status event: %w", err)
	}
	s.store.SetStatus(status)
	s.store.ClearBackendError()
	return nil
}

func (s *Syncer) onMatchEvent(data []byte) error {
	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return fmt.Errorf("decode match event: %w", err)
	}
	s.store.ApplyMatch(match)
	s.store.ClearBackendError()
	return nil
}

// onLogEvent unwraps the {"log": "..."} envelope. A payload that is not the
// usual envelope is kept verbatim rather than dropped.
func (s *Syncer) onLogEvent(data []byte) error {
	p := logParsers.Get()
	defer logParsers.Put(p)

	text := ""
	if v, err := p.ParseBytes(data); err == nil {
		text = string(v.GetStringBytes("log"))
	}
	if text == "" {
		text = string(data)
	}

	s.store.AppendLog(model.NewLogLine(text))
	s.store.ClearBackendError()
	return nil
}

// onStreamError only logs; channel badges come from the per-channel state
// callbacks and the consolidated banner belongs to failed REST calls.
func (s *Syncer) onStreamError(err error) {
	slog.Warn("stream connection lost, retrying", "error", err)
}

func (s *Syncer) reportFetchError(op string, err error) {
	slog.Error("backend fetch failed", "op", op, "error", err)

	var cerr *backend.ConnectionError
	var terr *backend.TimeoutError
	if errors.As(err, &cerr) || errors.As(err, &terr) {
		s.store.SetBackendError(err.Error())
	}
}
