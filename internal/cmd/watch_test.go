package cmd

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chatwoot/inboxq/internal/api"
	"github.com/chatwoot/inboxq/internal/config"
)

func TestRunWatchRefreshesOnInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	err := runWatch(ctx, 5*time.Millisecond, nil, func(_ context.Context, reason string) error {
		if reason != "interval" {
			t.Errorf("reason = %q, want interval", reason)
		}
		if calls.Add(1) == 3 {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("runWatch() error = %v", err)
	}
	if got := calls.Load(); got < 3 {
		t.Errorf("refresh called %d times, want at least 3", got)
	}
}

func TestRunWatchStopsOnRefreshError(t *testing.T) {
	boom := errors.New("render failed")
	err := runWatch(context.Background(), time.Millisecond, nil, func(context.Context, string) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("runWatch() error = %v, want %v", err, boom)
	}
}

func TestRunWatchNeverOverlapsRefreshes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	var running, overlaps atomic.Int32
	err := runWatch(ctx, time.Millisecond, nil, func(context.Context, string) error {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})
	if err != nil {
		t.Fatalf("runWatch() error = %v", err)
	}
	if overlaps.Load() != 0 {
		t.Errorf("%d overlapping refreshes", overlaps.Load())
	}
}

func TestNewLiveWatcherFetchesPubsubToken(t *testing.T) {
	env := setupTestEnv(t)

	account := config.Account{BaseURL: env.server.URL, APIToken: "test-token", AccountID: 1}
	ws := &workspace{account: account, client: api.New(account.BaseURL, account.APIToken, account.AccountID)}

	w, err := newLiveWatcher(context.Background(), ws, time.Second)
	if err != nil {
		t.Fatalf("newLiveWatcher() error = %v", err)
	}
	if w.Channel.PubsubToken != "pub-123" || w.Channel.UserID != 3 || w.Channel.AccountID != 1 {
		t.Errorf("channel = %+v", w.Channel)
	}
	if w.Channel.Channel != roomChannel {
		t.Errorf("channel name = %q", w.Channel.Channel)
	}
	if w.Debounce != time.Second {
		t.Errorf("debounce = %v", w.Debounce)
	}
	if want := "ws" + env.server.URL[len("http"):] + "/cable"; w.CableURL != want {
		t.Errorf("cable URL = %q, want %q", w.CableURL, want)
	}
}

func TestNewLiveWatcherUsesStoredToken(t *testing.T) {
	account := config.Account{BaseURL: "https://app.example.com", APIToken: "t", AccountID: 9, PubsubToken: "stored"}
	ws := &workspace{account: account}

	w, err := newLiveWatcher(context.Background(), ws, 0)
	if err != nil {
		t.Fatalf("newLiveWatcher() error = %v", err)
	}
	if w.Channel.PubsubToken != "stored" || w.CableURL != "wss://app.example.com/cable" {
		t.Errorf("watcher = %+v", w)
	}
}

func TestWatchRejectsNonPositiveInterval(t *testing.T) {
	setupTestEnv(t)

	var err error
	_ = captureStderr(t, func() {
		err = Execute(context.Background(), []string{"watch", "--interval", "0s"})
	})
	if err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestWatchStopsWithContext(t *testing.T) {
	env := setupTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	var err error
	errOut := captureStderr(t, func() {
		_ = captureStdout(t, func() {
			err = Execute(ctx, []string{"watch", "--interval", "20ms"})
		})
	})
	if err != nil {
		t.Fatalf("watch error = %v\n%s", err, errOut)
	}
	if env.service.requests() < 2 {
		t.Errorf("expected initial fetch plus refreshes, got %d requests", env.service.requests())
	}
}
