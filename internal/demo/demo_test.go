package demo

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/model"
	"github.com/xca-bot/xcaboard/internal/state"
)

func wantAPIError(t *testing.T, err error, status int) {
	t.Helper()
	var aerr *backend.APIError
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %v, want *backend.APIError", err)
	}
	if aerr.Status != status {
		t.Errorf("Status = %d, want %d", aerr.Status, status)
	}
}

func TestLifecycle_StartStop(t *testing.T) {
	b := New()
	ctx := context.Background()

	st, err := b.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.IsRunning {
		t.Fatal("demo backend should boot running")
	}

	if _, err := b.Start(ctx); err == nil {
		t.Error("Start while running should fail")
	} else {
		wantAPIError(t, err, http.StatusBadRequest)
	}

	if _, err := b.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	st, _ = b.Status(ctx)
	if st.IsRunning {
		t.Error("IsRunning = true after stop")
	}

	if _, err := b.Stop(ctx); err == nil {
		t.Error("Stop while stopped should fail")
	} else {
		wantAPIError(t, err, http.StatusBadRequest)
	}

	if _, err := b.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestDestinations_AddRemoveTest(t *testing.T) {
	b := New()
	ctx := context.Background()

	if _, err := b.AddDestination(ctx, model.TelegramDestination{ChatID: "-100999", Description: "extra"}); err != nil {
		t.Fatalf("AddDestination: %v", err)
	}
	if _, err := b.AddDestination(ctx, model.TelegramDestination{ChatID: "-100999"}); err == nil {
		t.Error("duplicate add should fail")
	} else {
		wantAPIError(t, err, http.StatusBadRequest)
	}

	if _, err := b.TestDestination(ctx, "-100999"); err != nil {
		t.Errorf("TestDestination: %v", err)
	}

	if _, err := b.RemoveDestination(ctx, "-100999"); err != nil {
		t.Fatalf("RemoveDestination: %v", err)
	}
	if _, err := b.TestDestination(ctx, "-100999"); err == nil {
		t.Error("test after remove should fail")
	} else {
		wantAPIError(t, err, http.StatusNotFound)
	}
}

func TestMatches_ClampsLimit(t *testing.T) {
	b := New()

	page, total, err := b.Matches(context.Background(), 1000)
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if len(page) != len(b.matches) {
		t.Errorf("page size = %d, want %d", len(page), len(b.matches))
	}
	if total < len(page) {
		t.Errorf("total = %d, less than page size %d", total, len(page))
	}
}

func TestConfig_ReturnsACopy(t *testing.T) {
	b := New()
	ctx := context.Background()

	cfg, err := b.Config(ctx)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	cfg.Monitoring.Usernames[0] = "mutated"

	again, _ := b.Config(ctx)
	if again.Monitoring.Usernames[0] == "mutated" {
		t.Error("mutating the returned config leaked into the backend")
	}
}

func TestCleanup_DropsOldMatches(t *testing.T) {
	b := New()
	old := model.Match{
		ID:        9999,
		Username:  "whale_alerts",
		TweetID:   "old-1",
		Timestamp: time.Now().AddDate(0, 0, -40).Format("2006-01-02T15:04:05"),
	}
	b.mu.Lock()
	b.matches = append(b.matches, old)
	b.total++
	before := len(b.matches)
	b.mu.Unlock()

	result, err := b.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !result.Success {
		t.Error("Success = false")
	}

	b.mu.Lock()
	after := len(b.matches)
	b.mu.Unlock()
	if after != before-1 {
		t.Errorf("matches = %d after cleanup, want %d", after, before-1)
	}
}

func TestRun_FeedsStore(t *testing.T) {
	b := New()
	store := state.New(10, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx, store, 5*time.Millisecond)
	}()

	deadline := time.After(2 * time.Second)
	for {
		snap := store.Snapshot()
		if snap.Status.IsRunning && len(snap.Matches) > 0 && len(snap.Logs) > 0 &&
			snap.Channels[backend.ChannelLogs] == backend.StateStreaming.String() {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("store never populated: %+v", snap.Channels)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after cancel")
	}
}
