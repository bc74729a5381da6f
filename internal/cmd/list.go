package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatwoot/inboxq/internal/inbox"
)

func newListCmd() *cobra.Command {
	var (
		page    int
		perPage int
		sortBy  string
		order   string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations with the current filters",
		Long: strings.TrimSpace(`
Fetch one page of conversations using the stored filters (or those of --url),
the saved sort order and page size. Flags override those for this fetch; once
it succeeds the page size and sort order it used are saved.`),
		Example: strings.TrimSpace(`
  # First page with the stored filters
  inboxq list

  # Third page, oldest first
  inboxq list --page 3 --order asc

  # Open a shared link
  inboxq list --url 'https://app.example.com/inbox?status=handoff&sentiment=negative'

  # Only ids
  inboxq list --jq '[.conversations[].id]'
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if page < 0 {
				return fmt.Errorf("--page must be >= 1")
			}
			if perPage < 0 {
				return fmt.Errorf("--per-page must be >= 1")
			}
			o := inbox.Overrides{Page: page, PerPage: perPage}
			var err error
			if sortBy != "" {
				if o.SortBy, err = inbox.ParseSortField(sortBy); err != nil {
					return err
				}
			}
			if order != "" {
				if o.SortOrder, err = inbox.ParseSortOrder(order); err != nil {
					return err
				}
			}

			ws, err := openWorkspace(cmd, workspaceOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			if err := fetchResult(ws.session.FetchConversations(cmdContext(cmd), o)); err != nil {
				return err
			}
			return renderView(cmd, ws)
		}),
	}

	cmd.Flags().IntVarP(&page, "page", "p", 0, "Page to fetch (default 1)")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Page size for this request")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort field for this request: updated_at|created_at|status")
	cmd.Flags().StringVar(&order, "order", "", "Sort order for this request: asc|desc")
	flagAlias(cmd.Flags(), "per-page", "limit")

	return cmd
}
