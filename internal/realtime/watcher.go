package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// EventResubscribed is reported after a dropped connection is re-established,
// since broadcasts may have been missed while it was down.
const EventResubscribed = "stream.resubscribed"

var listChangeEvents = map[string]struct{}{
	"conversation.created":        {},
	"conversation.updated":        {},
	"conversation.status_changed": {},
	"assignee.changed":            {},
	"message.created":             {},
	EventResubscribed:             {},
}

// IsListChange reports whether an event can add, remove or reorder rows in
// the conversation list.
func IsListChange(name string) bool {
	_, ok := listChangeEvents[name]
	return ok
}

// Watcher keeps a subscription to the account stream alive and reports list
// changes.
type Watcher struct {
	CableURL string
	Channel  ChannelID
	// Debounce coalesces bursts of events into one callback per window.
	Debounce         time.Duration
	PingTimeout      time.Duration
	PresenceInterval time.Duration
	MinBackoff       time.Duration
	MaxBackoff       time.Duration
	Logger           *slog.Logger
}

const (
	defaultMinBackoff       = 2 * time.Second
	defaultMaxBackoff       = 30 * time.Second
	defaultPresenceInterval = 30 * time.Second
	backoffResetAfter       = 60 * time.Second
)

// Run subscribes and calls onChange for list-changing events until ctx is
// done, reconnecting with exponential backoff. It always returns a non-nil
// error, ctx.Err() on cancellation.
func (w *Watcher) Run(ctx context.Context, onChange func(Event)) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	minBackoff, maxBackoff := w.MinBackoff, w.MaxBackoff
	if minBackoff <= 0 {
		minBackoff = defaultMinBackoff
	}
	if maxBackoff < minBackoff {
		maxBackoff = max(defaultMaxBackoff, minBackoff)
	}

	backoff := minBackoff
	for attempt := 0; ; attempt++ {
		start := time.Now()
		err := w.stream(ctx, attempt > 0, onChange)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) >= backoffResetAfter {
			backoff = minBackoff
		}
		logger.Warn("realtime stream lost", "error", err, "retry_in", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (w *Watcher) stream(ctx context.Context, resubscribe bool, onChange func(Event)) error {
	conn, err := Connect(ctx, w.CableURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Subscribe(ctx, w.Channel); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	presence := w.PresenceInterval
	if presence <= 0 {
		presence = defaultPresenceInterval
	}
	conn.StartPresence(streamCtx, presence, func(err error) {
		slog.Debug("realtime presence failed", "error", err)
	})

	pingTimeout := w.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = DefaultPingTimeout
	}
	events := conn.ListenWithTimeout(streamCtx, pingTimeout)

	var (
		pending *Event
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	flush := func() {
		if pending != nil {
			ev := *pending
			pending = nil
			onChange(ev)
		}
	}

	deliver := func(ev Event) {
		if w.Debounce <= 0 {
			onChange(ev)
			return
		}
		pending = &ev
		if timer == nil {
			timer = time.NewTimer(w.Debounce)
			fire = timer.C
		}
	}

	if resubscribe {
		deliver(Event{Name: EventResubscribed})
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-fire:
			timer, fire = nil, nil
			flush()
		case ev, ok := <-events:
			if !ok {
				flush()
				return errors.New("event stream closed")
			}
			if ev.Err != nil {
				flush()
				return ev.Err
			}
			if IsListChange(ev.Name) {
				deliver(ev)
			}
		}
	}
}
