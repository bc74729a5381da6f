package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatwoot/inboxq/internal/cli"
	"github.com/chatwoot/inboxq/internal/inbox"
)

func newFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "filter",
		Aliases: []string{"f"},
		Short:   "Change the list filters",
		Long: strings.TrimSpace(`
Every filter change goes back to the first page, rewrites the stored query
string (or the --url location) and fetches the list.`),
	}
	cmd.AddCommand(newFilterSearchCmd())
	cmd.AddCommand(newFilterDatesCmd())
	cmd.AddCommand(newFilterStatusCmd())
	cmd.AddCommand(newFilterSentimentCmd())
	cmd.AddCommand(newFilterHandoffCmd())
	cmd.AddCommand(newFilterRemoveCmd())
	cmd.AddCommand(newFilterClearCmd())
	return cmd
}

// mutate opens a workspace, applies fn, and renders the resulting list.
func mutate(cmd *cobra.Command, fn func(ctx context.Context, ws *workspace) error) error {
	ws, err := openWorkspace(cmd, workspaceOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	if err := fetchResult(fn(cmdContext(cmd), ws)); err != nil {
		return err
	}
	return renderView(cmd, ws)
}

func newFilterSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "Filter by free text (empty text clears it)",
		Example: strings.TrimSpace(`
  inboxq filter search refund request
  inboxq filter search ""
`),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			q := strings.TrimSpace(strings.Join(args, " "))
			return mutate(cmd, func(ctx context.Context, ws *workspace) error {
				// an unchanged query only refreshes the list
				if q == ws.session.Snapshot().Filters.SearchQuery {
					return ws.session.FetchConversations(ctx, inbox.Overrides{})
				}
				return ws.session.SetSearchQuery(ctx, q)
			})
		}),
	}
}

func newFilterDatesCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "dates",
		Short: "Filter by an inclusive date range",
		Long: strings.TrimSpace(`
Set either bound or both. A bound that is not given keeps its current value;
"none" clears it. Dates are YYYY-MM-DD, today, yesterday, a weekday, or
relative like "3d ago" and "2w ago".`),
		Example: strings.TrimSpace(`
  inboxq filter dates --from 2024-01-01 --to 2024-01-31
  inboxq filter dates --from "1w ago"
  inboxq filter dates --to none
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			fromSet, toSet := flagOrAliasChanged(cmd, "from"), flagOrAliasChanged(cmd, "to")
			if !fromSet && !toSet {
				return fmt.Errorf("at least one of --from or --to is required")
			}
			now := time.Now()
			fromDay, err := cli.ParseDay(from, now)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toDay, err := cli.ParseDay(to, now)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			return mutate(cmd, func(ctx context.Context, ws *workspace) error {
				current := ws.session.Snapshot().Filters.DateRange
				if !fromSet {
					fromDay = current.From
				}
				if !toSet {
					toDay = current.To
				}
				return ws.session.SetDateRange(ctx, fromDay, toDay)
			})
		}),
	}

	cmd.Flags().StringVar(&from, "from", "", "First day to include")
	cmd.Flags().StringVar(&to, "to", "", "Last day to include")
	flagAlias(cmd.Flags(), "from", "since")
	flagAlias(cmd.Flags(), "to", "until")
	return cmd
}

func newFilterStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <status>...",
		Short: "Filter by status: active, handoff, closed",
		Example: strings.TrimSpace(`
  inboxq filter status active handoff
  inboxq filter status closed
`),
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			statuses, err := inbox.ParseStatuses(splitArgs(args))
			if err != nil {
				return err
			}
			return mutate(cmd, func(ctx context.Context, ws *workspace) error {
				return ws.session.SetStatusFilters(ctx, statuses...)
			})
		}),
	}
}

func newFilterSentimentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sentiment <sentiment>...",
		Short: "Filter by sentiment: positive, neutral, negative",
		Args:  cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			sentiments, err := inbox.ParseSentiments(splitArgs(args))
			if err != nil {
				return err
			}
			return mutate(cmd, func(ctx context.Context, ws *workspace) error {
				return ws.session.SetSentimentFilters(ctx, sentiments...)
			})
		}),
	}
}

func newFilterHandoffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handoff <true|false|any>",
		Short: "Filter by whether a conversation was handed off",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			v, err := parseHandoff(args[0])
			if err != nil {
				return err
			}
			return mutate(cmd, func(ctx context.Context, ws *workspace) error {
				return ws.session.SetHasHandoffFilter(ctx, v)
			})
		}),
	}
}

func parseHandoff(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return inbox.Bool(true), nil
	case "false", "no", "0":
		return inbox.Bool(false), nil
	case "any", "all", "none":
		return nil, nil
	default:
		return nil, &inbox.EnumError{Field: "handoff", Value: s, Allowed: []string{"true", "false", "any"}}
	}
}

func newFilterRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <key> [value]",
		Aliases: []string{"rm"},
		Short:   "Clear one filter, or one value of a status or sentiment filter",
		Long: strings.TrimSpace(`
Keys: search, dates, status, sentiment, handoff. For status and sentiment a
value removes just that member. For dates, "from" or "to" clears one bound.`),
		Example: strings.TrimSpace(`
  inboxq filter remove status closed
  inboxq filter remove dates to
  inboxq filter remove search
`),
		Args: cobra.RangeArgs(1, 2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			key, err := inbox.ParseFilterKey(args[0])
			if err != nil {
				return err
			}
			var value []string
			if len(args) == 2 {
				v := strings.ToLower(strings.TrimSpace(args[1]))
				if key == inbox.KeyDateRange && v != "from" && v != "to" {
					return &inbox.EnumError{Field: "date bound", Value: args[1], Allowed: []string{"from", "to"}}
				}
				value = append(value, v)
			}
			return mutate(cmd, func(ctx context.Context, ws *workspace) error {
				return ws.session.RemoveFilter(ctx, key, value...)
			})
		}),
	}
}

func newFilterClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset every filter",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			return mutate(cmd, func(ctx context.Context, ws *workspace) error {
				return ws.session.ClearAllFilters(ctx)
			})
		}),
	}
}
