package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatwoot/inboxq/internal/inbox"
)

func newSortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sort <updated_at|created_at|status> [asc|desc]",
		Short: "Change and save the sort order",
		Long: strings.TrimSpace(`
Saves the sort field and direction as preferences and fetches the first page.
Without a direction the current one is kept.`),
		Example: strings.TrimSpace(`
  inboxq sort created_at asc
  inboxq sort status
`),
		Args: cobra.RangeArgs(1, 2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			field, err := inbox.ParseSortField(args[0])
			if err != nil {
				return err
			}
			var order inbox.SortOrder
			if len(args) == 2 {
				if order, err = inbox.ParseSortOrder(args[1]); err != nil {
					return err
				}
			}
			return mutate(cmd, func(ctx context.Context, ws *workspace) error {
				if order == "" {
					order = ws.session.Snapshot().SortOrder
				}
				return ws.session.SetSorting(ctx, field, order)
			})
		}),
	}
}

func newPerPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "per-page <n>",
		Short: "Change and save the page size",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil || n < 1 {
				return fmt.Errorf("page size must be a positive integer, got %q", args[0])
			}
			return mutate(cmd, func(ctx context.Context, ws *workspace) error {
				return ws.session.SetPerPage(ctx, n)
			})
		}),
	}
}
