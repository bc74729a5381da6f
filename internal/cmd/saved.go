package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSavedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "saved",
		Aliases: []string{"presets"},
		Short:   "Manage saved filters",
		Long: strings.TrimSpace(`
A saved filter is a named snapshot of the current filters. Applying one
replaces every filter with the snapshot. Saved filters are referenced by id,
a unique id prefix, or name.`),
	}
	cmd.AddCommand(newSavedSaveCmd())
	cmd.AddCommand(newSavedListCmd())
	cmd.AddCommand(newSavedApplyCmd())
	cmd.AddCommand(newSavedDeleteCmd())
	return cmd
}

func newSavedSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "save <name>",
		Short:   "Save the current filters under a name",
		Example: `  inboxq saved save "Angry refunds"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, workspaceOptions{offline: true})
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			sf, err := ws.session.SaveCurrentFilters(cmdContext(cmd), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return newFormatter(cmd).Output(sf)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), sf.ID)
			newFormatter(cmd).Note("Saved %q: %s", sf.Name, describeFilters(sf.Filters))
			return nil
		}),
	}
}

func newSavedListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved filters",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ws, err := openWorkspace(cmd, workspaceOptions{offline: true})
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			saved := ws.session.SavedFilters()
			f := newFormatter(cmd)
			if isJSON(cmd) {
				return f.Output(saved)
			}
			if len(saved) == 0 {
				f.Empty("No saved filters.")
				return nil
			}
			f.StartTable("ID", "NAME", "FILTERS", "CREATED")
			for _, sf := range saved {
				f.Row(sf.ID, sf.Name, describeFilters(sf.Filters), formatTimestamp(sf.CreatedAt))
			}
			return f.EndTable()
		}),
	}
}

func newSavedApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <id|name>",
		Short: "Replace the current filters with a saved filter",
		Args:  cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ref := strings.Join(args, " ")
			return mutate(cmd, func(ctx context.Context, ws *workspace) error {
				sf, err := ws.session.FindSavedFilter(ref)
				if err != nil {
					return err
				}
				return ws.session.ApplySavedFilter(ctx, sf.ID)
			})
		}),
	}
}

func newSavedDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved filter",
		Args:    cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, workspaceOptions{offline: true})
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			sf, err := ws.session.FindSavedFilter(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := ws.session.DeleteSavedFilter(cmdContext(cmd), sf.ID); err != nil {
				return err
			}
			if isJSON(cmd) {
				return newFormatter(cmd).Output(map[string]any{"deleted": sf.ID})
			}
			newFormatter(cmd).Note("Deleted %q (%s)", sf.Name, sf.ID)
			return nil
		}),
	}
}
