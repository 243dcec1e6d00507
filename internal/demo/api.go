package demo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/model"
)

// The methods below mirror the REST client's surface so the handlers accept
// either one. Errors use the same taxonomy the real backend produces.

func (b *Backend) Status(ctx context.Context) (*model.MonitoringStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked(), nil
}

func (b *Backend) Start(ctx context.Context) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil, &backend.APIError{Status: http.StatusBadRequest, Detail: "Monitoring is already running"}
	}
	b.running = true
	b.startedAt = time.Now()
	b.lastCheck = time.Now()
	b.appendLogLocked("INFO", "Monitoring started")
	return &backend.ActionResult{Success: true, Message: "Monitoring started"}, nil
}

func (b *Backend) Stop(ctx context.Context) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return nil, &backend.APIError{Status: http.StatusBadRequest, Detail: "Monitoring is not running"}
	}
	b.running = false
	b.appendLogLocked("INFO", "Monitoring stopped")
	return &backend.ActionResult{Success: true, Message: "Monitoring stopped"}, nil
}

func (b *Backend) CheckNow(ctx context.Context) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastCheck = time.Now()
	b.appendLogLocked("INFO", "Manual check triggered")
	return &backend.ActionResult{Success: true, Message: "Manual check completed"}, nil
}

func (b *Backend) Matches(ctx context.Context, limit int) ([]model.Match, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > len(b.matches) {
		limit = len(b.matches)
	}
	page := make([]model.Match, limit)
	copy(page, b.matches[:limit])
	return page, b.total, nil
}

func (b *Backend) Config(ctx context.Context) (*model.AppConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cfg := b.cfg
	cfg.Monitoring.Usernames = append([]string(nil), b.cfg.Monitoring.Usernames...)
	cfg.Monitoring.RegexPatterns = append([]string(nil), b.cfg.Monitoring.RegexPatterns...)
	cfg.Monitoring.Keywords = append([]string(nil), b.cfg.Monitoring.Keywords...)
	cfg.Telegram.ForwardingDestinations = append([]model.TelegramDestination(nil), b.cfg.Telegram.ForwardingDestinations...)
	return &cfg, nil
}

func (b *Backend) UpdateConfig(ctx context.Context, cfg *model.AppConfig) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = *cfg
	b.appendLogLocked("INFO", "Configuration updated")
	return &backend.ActionResult{Success: true, Message: "Configuration updated"}, nil
}

func (b *Backend) AddDestination(ctx context.Context, dest model.TelegramDestination) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.cfg.Telegram.ForwardingDestinations {
		if d.ChatID == dest.ChatID {
			return nil, &backend.APIError{Status: http.StatusBadRequest, Detail: "Destination already exists"}
		}
	}
	b.cfg.Telegram.ForwardingDestinations = append(b.cfg.Telegram.ForwardingDestinations, dest)
	b.appendLogLocked("INFO", "Added forwarding destination "+dest.ChatID)
	return &backend.ActionResult{Success: true, Message: "Destination added"}, nil
}

func (b *Backend) RemoveDestination(ctx context.Context, chatID string) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dests := b.cfg.Telegram.ForwardingDestinations
	for i, d := range dests {
		if d.ChatID == chatID {
			b.cfg.Telegram.ForwardingDestinations = append(dests[:i], dests[i+1:]...)
			b.appendLogLocked("INFO", "Removed forwarding destination "+chatID)
			return &backend.ActionResult{Success: true, Message: "Destination removed"}, nil
		}
	}
	return nil, &backend.APIError{Status: http.StatusNotFound, Detail: "Destination not found"}
}

func (b *Backend) TestDestination(ctx context.Context, chatID string) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.cfg.Telegram.ForwardingDestinations {
		if d.ChatID == chatID {
			b.appendLogLocked("INFO", "Sent test message to "+chatID)
			return &backend.ActionResult{Success: true, Message: "Test message sent to " + chatID}, nil
		}
	}
	return nil, &backend.APIError{Status: http.StatusNotFound, Detail: "Destination not found"}
}

func (b *Backend) Users(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.cfg.Monitoring.Usernames...), nil
}

func (b *Backend) UpdateUsers(ctx context.Context, usernames []string) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.Monitoring.Usernames = append([]string(nil), usernames...)
	b.appendLogLocked("INFO", fmt.Sprintf("Updated monitored users (%d)", len(usernames)))
	return &backend.ActionResult{Success: true, Message: "Users updated"}, nil
}

func (b *Backend) Patterns(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.cfg.Monitoring.RegexPatterns...), nil
}

func (b *Backend) UpdatePatterns(ctx context.Context, patterns []string) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.Monitoring.RegexPatterns = append([]string(nil), patterns...)
	b.appendLogLocked("INFO", fmt.Sprintf("Updated regex patterns (%d)", len(patterns)))
	return &backend.ActionResult{Success: true, Message: "Patterns updated"}, nil
}

func (b *Backend) Keywords(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.cfg.Monitoring.Keywords...), nil
}

func (b *Backend) UpdateKeywords(ctx context.Context, keywords []string) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.Monitoring.Keywords = append([]string(nil), keywords...)
	b.appendLogLocked("INFO", fmt.Sprintf("Updated keywords (%d)", len(keywords)))
	return &backend.ActionResult{Success: true, Message: "Keywords updated"}, nil
}

func (b *Backend) ClearLogs(ctx context.Context) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = nil
	return &backend.ActionResult{Success: true, Message: "Logs cleared"}, nil
}

func (b *Backend) DownloadLogs(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.logs) == 0 {
		return nil, nil
	}
	return []byte(strings.Join(b.logs, "\n") + "\n"), nil
}

func (b *Backend) ExportMatches(ctx context.Context, filename string) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if filename == "" {
		filename = "matches_export.csv"
	}
	msg := fmt.Sprintf("Exported %d matches to %s", len(b.matches), filename)
	b.appendLogLocked("INFO", msg)
	return &backend.ActionResult{Success: true, Message: msg}, nil
}

func (b *Backend) Cleanup(ctx context.Context) (*backend.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -30)
	kept := b.matches[:0]
	removed := 0
	for _, m := range b.matches {
		if t, ok := m.Time(); ok && t.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	b.matches = kept
	b.total -= removed
	msg := fmt.Sprintf("Removed %d matches older than 30 days", removed)
	b.appendLogLocked("INFO", msg)
	return &backend.ActionResult{Success: true, Message: msg}, nil
}
