package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatwoot/inboxq/internal/api"
	"github.com/chatwoot/inboxq/internal/config"
	"github.com/chatwoot/inboxq/internal/inbox"
	"github.com/chatwoot/inboxq/internal/location"
	"github.com/chatwoot/inboxq/internal/storage"
)

// locationFileName is the query-string file under the state directory that
// carries filters between invocations.
const locationFileName = "filters"

// workspace is everything one command needs to drive a session.
type workspace struct {
	settings config.Settings
	account  config.Account
	client   *api.Client
	store    storage.Store
	location inbox.Location
	// memory is set when the location is held in memory (--url, serve).
	memory  *location.Memory
	session *inbox.Session
}

type workspaceOptions struct {
	// offline allows commands that never fetch to run without credentials.
	offline bool
	// memoryLocation keeps the location in memory even without --url.
	memoryLocation bool
}

func openWorkspace(cmd *cobra.Command, opts workspaceOptions) (*workspace, error) {
	ctx := cmdContext(cmd)

	settings, err := config.LoadSettings(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	ws := &workspace{settings: settings}

	var lister inbox.Lister
	account, err := config.LoadAccount()
	switch {
	case err == nil:
		ws.account = account
		ws.client = newAPIClient(account, settings.API)
		lister = ws.client
	case opts.offline:
		loadErr := err
		lister = inbox.ListerFunc(func(context.Context, inbox.QueryParams) (*inbox.ListResult, error) {
			return nil, loadErr
		})
	default:
		return nil, err
	}

	stateDir := settings.Storage.StateDir
	if stateDir == "" {
		if stateDir, err = storage.DefaultDir(); err != nil {
			return nil, fmt.Errorf("resolve state directory: %w", err)
		}
	}
	sqlitePath := settings.Storage.SQLite
	if sqlitePath == "" {
		sqlitePath = filepath.Join(stateDir, "inboxq.db")
	}
	ws.store, err = storage.Open(ctx, storage.Options{
		Backend:       settings.Storage.Backend,
		Dir:           stateDir,
		RedisAddr:     settings.Storage.Redis.Addr,
		RedisDB:       settings.Storage.Redis.DB,
		RedisPassword: settings.Storage.Redis.Password,
		RedisPrefix:   settings.Storage.Redis.Prefix,
		SQLitePath:    sqlitePath,
		OpenKeyring:   config.OpenKeyring,
	})
	if err != nil {
		return nil, err
	}

	if flags.URL != "" || opts.memoryLocation {
		mem, err := location.NewMemory(flags.URL)
		if err != nil {
			_ = ws.store.Close()
			return nil, err
		}
		ws.memory = mem
		ws.location = mem
	} else {
		ws.location = location.NewFile(filepath.Join(stateDir, locationFileName))
	}

	sortBy, sortOrder, err := listDefaults(settings.List)
	if err != nil {
		_ = ws.store.Close()
		return nil, err
	}
	ws.session, err = inbox.New(ctx, lister,
		inbox.WithLocation(ws.location),
		inbox.WithStore(ws.store),
		inbox.WithSlot(settings.Storage.Slot),
		inbox.WithDefaults(settings.List.PerPage, sortBy, sortOrder),
		inbox.WithLogger(slog.Default()),
	)
	if err != nil {
		_ = ws.store.Close()
		return nil, err
	}
	ws.session.RestoreFromLocation()
	return ws, nil
}

func listDefaults(s config.ListSettings) (inbox.SortField, inbox.SortOrder, error) {
	var (
		field inbox.SortField
		order inbox.SortOrder
		err   error
	)
	if s.SortBy != "" {
		if field, err = inbox.ParseSortField(s.SortBy); err != nil {
			return "", "", fmt.Errorf("config list.sortBy: %w", err)
		}
	}
	if s.SortOrder != "" {
		if order, err = inbox.ParseSortOrder(s.SortOrder); err != nil {
			return "", "", fmt.Errorf("config list.sortOrder: %w", err)
		}
	}
	return field, order, nil
}

func newAPIClient(account config.Account, tuning config.APISettings) *api.Client {
	client := api.New(account.BaseURL, account.APIToken, account.AccountID)
	if flags.Timeout > 0 {
		client.HTTP.Timeout = flags.Timeout
	}
	client.Retry.RateLimitRetries = max(tuning.RateLimitRetries, 0)
	client.Retry.ServerErrorRetries = max(tuning.ServerErrorRetries, 0)
	client.Retry.BreakerThreshold = tuning.BreakerThreshold
	if tuning.BreakerCooldown > 0 {
		client.Retry.BreakerCooldown = tuning.BreakerCooldown
	}
	client.UserAgent = fmt.Sprintf("inboxq/%s", version)
	return client
}

// Close releases the store.
func (w *workspace) Close() error {
	if w.store == nil {
		return nil
	}
	return w.store.Close()
}

// locationString is the shareable form of the current location: the full URL
// for an in-memory location, otherwise "?" plus the stored query.
func (w *workspace) locationString() string {
	if w.memory != nil {
		return w.memory.URL()
	}
	raw, err := w.location.Read()
	if err != nil || raw == "" {
		return ""
	}
	return "?" + raw
}

// fetchResult keeps a superseded fetch from failing a command.
func fetchResult(err error) error {
	if errors.Is(err, inbox.ErrStaleResponse) {
		return nil
	}
	return err
}

// describeFilters renders active filters as space separated key=value pairs.
func describeFilters(f inbox.FilterState) string {
	var parts []string
	if f.SearchQuery != "" {
		parts = append(parts, fmt.Sprintf("search=%q", f.SearchQuery))
	}
	if f.DateRange.From != nil || f.DateRange.To != nil {
		parts = append(parts, "dates="+formatBound(f.DateRange.From)+".."+formatBound(f.DateRange.To))
	}
	if len(f.StatusFilters) > 0 {
		parts = append(parts, "status="+joinValues(f.StatusFilters))
	}
	if len(f.SentimentFilters) > 0 {
		parts = append(parts, "sentiment="+joinValues(f.SentimentFilters))
	}
	if f.HasHandoffFilter != nil {
		parts = append(parts, fmt.Sprintf("handoff=%t", *f.HasHandoffFilter))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

func joinValues[T ~string](values []T) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return strings.Join(out, ",")
}
