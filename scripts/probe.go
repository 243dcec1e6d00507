package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/xca-bot/xcaboard/internal/backend"
)

// Connectivity probe for a running monitoring backend: hits every REST
// endpoint the dashboard depends on, then follows each stream channel for a
// while. Run it before pointing the dashboard at a new deployment.
func main() {
	baseURL := flag.String("backend", "http://localhost:8000", "backend base URL")
	watch := flag.Duration("watch", 10*time.Second, "how long to follow each stream channel (0 skips streams)")
	flag.Parse()

	ctx := context.Background()
	client := backend.NewClient(*baseURL, 5*time.Second, time.Second)

	fmt.Printf("Probing backend at %s\n\n", client.BaseURL())

	status, err := client.Status(ctx)
	if err != nil {
		log.Fatalf("GET /status failed: %v", err)
	}
	fmt.Printf("✓ status: running=%v users=%d patterns=%d keywords=%d interval=%dm\n",
		status.IsRunning, status.MonitoredUsers, status.RegexPatterns, status.Keywords, status.CheckInterval)
	fmt.Printf("  twitter=%s telegram=%s\n", status.TwitterStatus, status.TelegramStatus)

	cfg, err := client.Config(ctx)
	if err != nil {
		log.Fatalf("GET /config failed: %v", err)
	}
	fmt.Printf("✓ config: channel=%s destinations=%d interval=%dm\n",
		cfg.Telegram.ChannelID, len(cfg.Telegram.ForwardingDestinations), cfg.Monitoring.CheckIntervalMinutes)

	matches, total, err := client.Matches(ctx, 5)
	if err != nil {
		log.Fatalf("GET /matches failed: %v", err)
	}
	fmt.Printf("✓ matches: %d total, showing %d\n", total, len(matches))
	for _, m := range matches {
		fmt.Printf("  - @%s %s (%d addresses)\n", m.Username, m.Timestamp, len(m.ContractAddresses))
	}

	logs, err := client.Logs(ctx, 10)
	if err != nil {
		log.Fatalf("GET /logs failed: %v", err)
	}
	fmt.Printf("✓ logs: %d recent lines\n", len(logs))

	if *watch <= 0 {
		return
	}
	for _, channel := range []string{backend.ChannelStatus, backend.ChannelMatches, backend.ChannelLogs} {
		watchChannel(client, channel, *watch)
	}
}

func watchChannel(client *backend.Client, channel string, d time.Duration) {
	fmt.Printf("\nFollowing /stream/%s for %s...\n", channel, d)
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	events := 0
	sub := client.Subscribe(ctx, channel, backend.SubscribeOptions{
		OnEvent: func(data []byte) error {
			events++
			if events <= 3 {
				fmt.Printf("  event: %.120s\n", data)
			}
			return nil
		},
		OnError: func(err error) {
			fmt.Printf("  stream error: %v\n", err)
		},
	})

	<-ctx.Done()
	sub.Close()
	fmt.Printf("  %d events\n", events)
}
