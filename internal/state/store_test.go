package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/model"
)

func TestSetStatus_LastWriteWins(t *testing.T) {
	s := New(0, 0)

	s.SetStatus(model.MonitoringStatus{IsRunning: true, MonitoredUsers: 4, Uptime: "0:10:00"})
	s.SetStatus(model.MonitoringStatus{IsRunning: false})

	snap := s.Snapshot()
	if snap.Status.IsRunning {
		t.Error("IsRunning = true, want the later payload to win")
	}
	if snap.Status.MonitoredUsers != 0 {
		t.Errorf("MonitoredUsers = %d, want 0: status payloads replace wholesale, no merge", snap.Status.MonitoredUsers)
	}
}

func TestApplyMatch_CapAndOrder(t *testing.T) {
	s := New(10, 0)

	for i := 1; i <= 15; i++ {
		s.ApplyMatch(model.Match{TweetID: fmt.Sprintf("%d", i), Username: "alice"})
	}

	snap := s.Snapshot()
	if len(snap.Matches) != 10 {
		t.Fatalf("got %d matches, want exactly 10", len(snap.Matches))
	}
	for i, m := range snap.Matches {
		want := fmt.Sprintf("%d", 15-i)
		if m.TweetID != want {
			t.Errorf("matches[%d].TweetID = %q, want %q (newest first)", i, m.TweetID, want)
		}
	}
	if snap.TotalMatches != 15 {
		t.Errorf("TotalMatches = %d, want 15", snap.TotalMatches)
	}
}

func TestApplyMatch_DeduplicatesByTweetID(t *testing.T) {
	s := New(10, 0)

	s.ApplyMatch(model.Match{TweetID: "1", Username: "alice"})
	s.ApplyMatch(model.Match{TweetID: "2", Username: "bob"})
	s.ApplyMatch(model.Match{TweetID: "1", Username: "alice"})

	snap := s.Snapshot()
	if len(snap.Matches) != 2 {
		t.Fatalf("got %d matches, want 2 after duplicate delivery", len(snap.Matches))
	}
	if snap.Matches[0].TweetID != "2" {
		t.Errorf("head = %q, want %q: duplicates keep their original position", snap.Matches[0].TweetID, "2")
	}
	if snap.TotalMatches != 2 {
		t.Errorf("TotalMatches = %d, want 2", snap.TotalMatches)
	}
}

func TestSetMatches_ReplacesWholesale(t *testing.T) {
	s := New(3, 0)

	s.ApplyMatch(model.Match{TweetID: "old"})
	s.SetMatches([]model.Match{
		{TweetID: "a"}, {TweetID: "b"}, {TweetID: "c"}, {TweetID: "d"},
	}, 42)

	snap := s.Snapshot()
	if len(snap.Matches) != 3 {
		t.Fatalf("got %d matches, want page trimmed to cap 3", len(snap.Matches))
	}
	if snap.Matches[0].TweetID != "a" {
		t.Errorf("head = %q, want %q", snap.Matches[0].TweetID, "a")
	}
	if snap.TotalMatches != 42 {
		t.Errorf("TotalMatches = %d, want backend total 42", snap.TotalMatches)
	}
}

func TestAppendLog_RingBound(t *testing.T) {
	s := New(0, 5)

	for i := 1; i <= 8; i++ {
		s.AppendLog(model.NewLogLine(fmt.Sprintf("line %d", i)))
	}

	snap := s.Snapshot()
	if len(snap.Logs) != 5 {
		t.Fatalf("got %d log lines, want 5", len(snap.Logs))
	}
	if snap.Logs[0].Text != "line 4" {
		t.Errorf("oldest kept line = %q, want %q", snap.Logs[0].Text, "line 4")
	}
	if snap.Logs[4].Text != "line 8" {
		t.Errorf("newest line = %q, want %q", snap.Logs[4].Text, "line 8")
	}
}

func TestSetLogs_KeepsNewestWithinBound(t *testing.T) {
	s := New(0, 3)

	lines := []model.LogLine{
		model.NewLogLine("1"), model.NewLogLine("2"),
		model.NewLogLine("3"), model.NewLogLine("4"),
	}
	s.SetLogs(lines)

	snap := s.Snapshot()
	if len(snap.Logs) != 3 {
		t.Fatalf("got %d log lines, want 3", len(snap.Logs))
	}
	if snap.Logs[0].Text != "2" {
		t.Errorf("oldest kept line = %q, want %q", snap.Logs[0].Text, "2")
	}
}

func TestMatchesToday_DerivedFromLocalDate(t *testing.T) {
	s := New(10, 0)
	base := time.Date(2026, 8, 22, 12, 0, 0, 0, time.Local)
	s.now = func() time.Time { return base }

	today := base.Format("2006-01-02T15:04:05")
	yesterday := base.AddDate(0, 0, -1).Format("2006-01-02T15:04:05")

	s.ApplyMatch(model.Match{TweetID: "1", Timestamp: today})
	s.ApplyMatch(model.Match{TweetID: "2", Timestamp: yesterday})
	s.ApplyMatch(model.Match{TweetID: "3", Timestamp: today})
	s.ApplyMatch(model.Match{TweetID: "4", Timestamp: "garbage"})

	if got := s.Snapshot().MatchesToday; got != 2 {
		t.Errorf("MatchesToday = %d, want 2", got)
	}
}

func TestChannelStates_ReportedAsStrings(t *testing.T) {
	s := New(0, 0)

	s.SetChannelState(backend.ChannelStatus, backend.StateStreaming)
	s.SetChannelState(backend.ChannelLogs, backend.StateError)

	snap := s.Snapshot()
	if got := snap.Channels[backend.ChannelStatus]; got != "streaming" {
		t.Errorf("status channel = %q, want %q", got, "streaming")
	}
	if got := snap.Channels[backend.ChannelLogs]; got != "error" {
		t.Errorf("logs channel = %q, want %q", got, "error")
	}
}

func TestBackendErrorBanner(t *testing.T) {
	s := New(0, 0)

	s.SetBackendError("cannot reach backend at http://localhost:8000")
	snap := s.Snapshot()
	if !snap.BackendDown {
		t.Error("BackendDown = false, want true")
	}
	if snap.LastError == "" {
		t.Error("LastError empty, want banner text")
	}

	s.ClearBackendError()
	snap = s.Snapshot()
	if snap.BackendDown || snap.LastError != "" {
		t.Errorf("banner not cleared: down=%v err=%q", snap.BackendDown, snap.LastError)
	}
}

func TestSubscribe_PrimedAndPushed(t *testing.T) {
	s := New(0, 0)
	s.SetStatus(model.MonitoringStatus{IsRunning: true})

	ch, cancel := s.Subscribe()
	defer cancel()

	select {
	case snap := <-ch:
		if !snap.Status.IsRunning {
			t.Error("primed snapshot missing current status")
		}
	default:
		t.Fatal("mailbox not primed with current state")
	}

	s.SetStatus(model.MonitoringStatus{IsRunning: false})
	select {
	case snap := <-ch:
		if snap.Status.IsRunning {
			t.Error("pushed snapshot is stale")
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot pushed after update")
	}
}

func TestSubscribe_LaggingSubscriberGetsLatest(t *testing.T) {
	s := New(0, 0)

	ch, cancel := s.Subscribe()
	defer cancel()

	// Never read while three updates land; the mailbox must end up holding
	// the newest snapshot, not the first.
	s.SetStatus(model.MonitoringStatus{Uptime: "1"})
	s.SetStatus(model.MonitoringStatus{Uptime: "2"})
	s.SetStatus(model.MonitoringStatus{Uptime: "3"})

	snap := <-ch
	if snap.Status.Uptime != "3" {
		t.Errorf("Uptime = %q, want %q (latest snapshot wins)", snap.Status.Uptime, "3")
	}
	if s.Dropped() == 0 {
		t.Error("Dropped() = 0, want stale snapshots counted")
	}
}

func TestSubscribe_CancelClosesMailbox(t *testing.T) {
	s := New(0, 0)

	ch, cancel := s.Subscribe()
	cancel()
	cancel() // safe to call twice

	// Drain the primed snapshot, then the channel must report closed.
	<-ch
	if _, ok := <-ch; ok {
		t.Error("mailbox still open after cancel")
	}

	// Updates after cancel must not panic.
	s.SetStatus(model.MonitoringStatus{IsRunning: true})
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New(10, 10)
	s.ApplyMatch(model.Match{TweetID: "1"})

	snap := s.Snapshot()
	snap.Matches[0].TweetID = "mutated"
	snap.Channels["status"] = "mutated"

	if got := s.Snapshot().Matches[0].TweetID; got != "1" {
		t.Errorf("store match mutated through snapshot: %q", got)
	}
}
