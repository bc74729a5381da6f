package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chatwoot/inboxq/internal/inbox"
	"github.com/chatwoot/inboxq/internal/realtime"
)

const roomChannel = "RoomChannel"

func newWatchCmd() *cobra.Command {
	var (
		interval time.Duration
		live     bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"w"},
		Short:   "Keep the list on screen and refresh it",
		Long: strings.TrimSpace(`
Refetch the current page on an interval. With --live the account's realtime
stream is also watched and the list is refetched shortly after conversations
change; the interval then acts as a safety net for missed events.`),
		Example: strings.TrimSpace(`
  inboxq watch
  inboxq watch --interval 10s
  inboxq watch --live --url '?status=handoff'
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ws, err := openWorkspace(cmd, workspaceOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			if !flagOrAliasChanged(cmd, "interval") && ws.settings.Watch.Interval > 0 {
				interval = ws.settings.Watch.Interval
			}
			if interval <= 0 {
				return fmt.Errorf("--interval must be greater than 0")
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !isJSON(cmd) {
				newFormatter(cmd).Note("Watching conversations (interval: %s, press Ctrl+C to stop)...", interval)
			}
			if err := fetchResult(ws.session.SyncWithLocation(ctx)); err != nil {
				return err
			}
			if err := renderView(cmd, ws); err != nil {
				return err
			}

			var watcher *realtime.Watcher
			if live {
				if watcher, err = newLiveWatcher(ctx, ws, debounce); err != nil {
					return err
				}
			}

			err = runWatch(ctx, interval, watcher, func(ctx context.Context, reason string) error {
				slog.Debug("refreshing conversation list", "reason", reason)
				if err := fetchResult(ws.session.FetchConversations(ctx, inbox.Overrides{})); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error fetching: %v\n", err)
					return nil
				}
				if !isJSON(cmd) {
					newFormatter(cmd).Note("\n[%s] refreshed (%s)", time.Now().Format("15:04:05"), reason)
				}
				return renderView(cmd, ws)
			})
			if err != nil {
				return err
			}
			if !isJSON(cmd) {
				newFormatter(cmd).Note("\nStopped watching.")
			}
			return nil
		}),
	}

	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Polling interval")
	cmd.Flags().BoolVar(&live, "live", false, "Also refresh on realtime conversation events")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Coalesce realtime events within this window")
	flagAlias(cmd.Flags(), "interval", "iv")
	return cmd
}

// runWatch calls refresh on every tick and watcher event until ctx is done.
// Refreshes never overlap; a request that arrives while one is running is
// merged into the next.
func runWatch(ctx context.Context, interval time.Duration, watcher *realtime.Watcher, refresh func(context.Context, string) error) error {
	requests := make(chan string, 1)
	request := func(reason string) {
		select {
		case requests <- reason:
		default:
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				request("interval")
			}
		}
	})
	if watcher != nil {
		g.Go(func() error {
			err := watcher.Run(gctx, func(ev realtime.Event) { request(ev.Name) })
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case reason := <-requests:
				if err := refresh(gctx, reason); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}

func newLiveWatcher(ctx context.Context, ws *workspace, debounce time.Duration) (*realtime.Watcher, error) {
	cableURL, err := realtime.CableURL(ws.account.BaseURL)
	if err != nil {
		return nil, err
	}
	channel := realtime.ChannelID{
		Channel:     roomChannel,
		PubsubToken: ws.account.PubsubToken,
		AccountID:   ws.account.AccountID,
	}
	if channel.PubsubToken == "" {
		profile, err := ws.client.Profile(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch realtime token: %w", err)
		}
		if profile.PubsubToken == "" {
			return nil, fmt.Errorf("profile has no pubsub token; realtime updates are unavailable")
		}
		channel.PubsubToken = profile.PubsubToken
		channel.UserID = profile.ID
	}
	return &realtime.Watcher{
		CableURL: cableURL,
		Channel:  channel,
		Debounce: debounce,
		Logger:   slog.Default(),
	}, nil
}
