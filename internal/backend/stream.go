package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Stream channel names exposed by the backend under /stream/{channel}.
const (
	ChannelStatus  = "status"
	ChannelMatches = "matches"
	ChannelLogs    = "logs"
)

// ChannelState tracks one subscription's connection lifecycle:
// Disconnected -> Connecting -> Streaming -> (Error -> Connecting) | Disconnected.
// The only way back to Disconnected is closing the subscription.
type ChannelState int

const (
	StateDisconnected ChannelState = iota
	StateConnecting
	StateStreaming
	StateError
)

func (s ChannelState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// SubscribeOptions carries the callbacks for one channel subscription. All
// callbacks are optional and are invoked from the subscription's own
// goroutine, one at a time, in arrival order.
type SubscribeOptions struct {
	// OnEvent receives the data payload of each stream message. Returning an
	// error counts as a stream failure: the connection is dropped and
	// redialed after the retry delay.
	OnEvent func(data []byte) error

	// OnError is told about every failed connection attempt or dropped
	// connection, before the retry wait starts.
	OnError func(err error)

	// OnState observes connection state transitions.
	OnState func(state ChannelState)
}

func (o SubscribeOptions) event(data []byte) error {
	if o.OnEvent == nil {
		return nil
	}
	return o.OnEvent(data)
}

func (o SubscribeOptions) fail(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

func (o SubscribeOptions) state(s ChannelState) {
	if o.OnState != nil {
		o.OnState(s)
	}
}

// Subscription is one live channel subscription. It owns at most one
// transport connection at any moment and keeps redialing until closed.
type Subscription struct {
	channel string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Channel returns the channel name this subscription follows.
func (s *Subscription) Channel() string {
	return s.channel
}

// Done is closed once the subscription's goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close tears down the transport and stops reconnecting. It blocks until the
// subscription goroutine has exited, so no callback runs after Close
// returns. Close must not be called from inside one of the subscription's
// own callbacks.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Subscribe opens a long-lived event stream to /stream/{channel} and feeds
// every message to the callbacks until the subscription is closed or ctx is
// canceled. Transport failures are reported through OnError and followed by
// a redial after the fixed retry delay; missed events are not replayed.
func (c *Client) Subscribe(ctx context.Context, channel string, opts SubscribeOptions) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		channel: channel,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.runStream(ctx, sub, opts)
	return sub
}

func (c *Client) runStream(ctx context.Context, sub *Subscription, opts SubscribeOptions) {
	defer close(sub.done)

	for {
		opts.state(StateConnecting)

		err := c.streamOnce(ctx, sub.channel, opts)
		if ctx.Err() != nil {
			opts.state(StateDisconnected)
			return
		}
		if err == nil {
			err = errors.New("stream ended")
		}

		opts.state(StateError)
		opts.fail(&StreamError{Channel: sub.channel, Err: err})

		select {
		case <-time.After(c.streamRetry):
		case <-ctx.Done():
			opts.state(StateDisconnected)
			return
		}
	}
}

// streamOnce dials the channel and pumps events until the connection fails
// or ctx is canceled. A nil OnEvent drains the stream without delivering.
func (c *Client) streamOnce(ctx context.Context, channel string, opts SubscribeOptions) error {
	url := fmt.Sprintf("%s/stream/%s", c.baseURL, channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	opts.state(StateStreaming)

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data []byte
	for sc.Scan() {
		line := sc.Bytes()
		switch {
		case len(line) == 0:
			// Blank line ends one event.
			if len(data) == 0 {
				continue
			}
			payload := data
			data = nil
			if err := opts.event(payload); err != nil {
				return fmt.Errorf("handle event: %w", err)
			}
		case bytes.HasPrefix(line, []byte("data:")):
			chunk := bytes.TrimPrefix(line, []byte("data:"))
			if len(chunk) > 0 && chunk[0] == ' ' {
				chunk = chunk[1:]
			}
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, chunk...)
		default:
			// Comments, ids and event names are not used by the backend.
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return errors.New("stream closed by server")
}
