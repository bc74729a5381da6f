package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatwoot/inboxq/internal/inbox"
	"github.com/chatwoot/inboxq/internal/location"
)

type urlOutput struct {
	Location string            `json:"location"`
	Filters  inbox.FilterState `json:"filters"`
}

func newURLCmd() *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Show or replace the query string the filters are mirrored to",
		Long: strings.TrimSpace(`
Prints the stored query string, which can be appended to an inbox URL to share
the current filters. --set replaces it with the query of a shared URL;
parameters inboxq does not know are kept as they are.`),
		Example: strings.TrimSpace(`
  inboxq url
  inboxq url --set 'https://app.example.com/inbox?status=closed&tab=mine'
  inboxq url --set ''
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ws, err := openWorkspace(cmd, workspaceOptions{offline: true})
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			if flagOrAliasChanged(cmd, "set") {
				query, err := location.QueryOf(set)
				if err != nil {
					return err
				}
				if err := ws.location.Replace(query); err != nil {
					return fmt.Errorf("replace location: %w", err)
				}
			}

			raw, err := ws.location.Read()
			if err != nil {
				return err
			}
			out := urlOutput{
				Location: ws.locationString(),
				Filters:  inbox.Decode(raw).ApplyTo(inbox.FilterState{}),
			}
			if isJSON(cmd) {
				return newFormatter(cmd).Output(out)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Location)
			newFormatter(cmd).Note("Filters: %s", describeFilters(out.Filters))
			return nil
		}),
	}

	cmd.Flags().StringVar(&set, "set", "", "Replace the stored query with this query string or URL")
	return cmd
}
