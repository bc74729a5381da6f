package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatwoot/inboxq/internal/inbox"
	"github.com/chatwoot/inboxq/internal/outfmt"
)

// viewOutput is the JSON shape of a list: the session view plus the
// location it is mirrored to.
type viewOutput struct {
	inbox.View
	Location string `json:"location,omitempty"`
}

const lastMessageWidth = 48

func renderView(cmd *cobra.Command, ws *workspace) error {
	view := ws.session.Snapshot()
	f := newFormatter(cmd)

	if isJSON(cmd) {
		if outfmt.ModeFromContext(cmd.Context()) == outfmt.JSONL {
			return f.Output(view.Conversations)
		}
		return f.Output(viewOutput{View: view, Location: ws.locationString()})
	}

	if len(view.Conversations) == 0 {
		f.Empty("No conversations found.")
	} else {
		f.StartTable("ID", "STATUS", "SENTIMENT", "HANDOFF", "CONTACT", "UPDATED", "LAST_MESSAGE")
		for _, c := range view.Conversations {
			f.Row(conversationRow(c)...)
		}
		if err := f.EndTable(); err != nil {
			return err
		}
	}
	f.Note("%s", pageSummary(view))
	f.Note("Filters: %s", describeFilters(view.Filters))
	if flags.URL != "" {
		f.Note("URL: %s", ws.locationString())
	}
	return nil
}

func conversationRow(c inbox.Conversation) []string {
	return []string{
		strconv.Itoa(c.ID),
		string(c.Status),
		orDash(string(c.Sentiment)),
		strconv.FormatBool(c.HasHandoff),
		orDash(c.ContactName),
		formatTimestamp(c.UpdatedAt),
		orDash(truncate(c.LastMessage, lastMessageWidth)),
	}
}

func pageSummary(v inbox.View) string {
	pages := v.Pagination.TotalPages
	if pages < 1 {
		pages = 1
	}
	return fmt.Sprintf("Page %d of %d (%d conversations, %d per page, sorted by %s %s)",
		v.CurrentPage, pages, v.Pagination.Total, v.PerPage, v.SortBy, v.SortOrder)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "*"
	}
	return t.Format(inbox.DateLayout)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
