package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chatwoot/inboxq/internal/api"
	"github.com/chatwoot/inboxq/internal/config"
	"github.com/chatwoot/inboxq/internal/debug"
	"github.com/chatwoot/inboxq/internal/outfmt"
)

// rootFlags holds global CLI flags
type rootFlags struct {
	Output     string
	JSON       bool
	Debug      bool
	LogFormat  string
	Query      string
	Compact    bool
	Quiet      bool
	Timeout    time.Duration
	URL        string
	ConfigPath string
}

// flags holds the global command flags. It is package-level mutable state
// that is reset at the start of every Execute() call; tests rely on that.
var flags = rootFlags{
	Output:  defaultOutput(),
	Timeout: api.DefaultTimeout,
}

func defaultOutput() string {
	value := strings.TrimSpace(os.Getenv("INBOXQ_OUTPUT"))
	if value != "" {
		return normalizeOutputFormat(value)
	}
	return "text"
}

func normalizeOutputFormat(value string) string {
	value = strings.TrimSpace(value)
	if value == "ndjson" {
		return "jsonl"
	}
	return value
}

// loadDotEnv loads variables from <config dir>/.env when the file exists.
// Variables already set in the environment win.
func loadDotEnv() {
	path := filepath.Join(config.Dir(), ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// Execute runs the root command
func Execute(ctx context.Context, args []string) error {
	loadDotEnv()

	flags = rootFlags{
		Output:  defaultOutput(),
		Timeout: api.DefaultTimeout,
	}

	root := &cobra.Command{
		Use:   "inboxq",
		Short: "Query, filter and page through the conversation inbox",
		Long: strings.TrimSpace(`
inboxq keeps one conversation list: its filters, sort order, page size and
saved filter presets. Filters are mirrored to a query string so a list can be
shared as a URL and restored later with --url.`),
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			flags.Output = normalizeOutputFormat(flags.Output)
			if flags.JSON {
				if flagOrAliasChanged(cmd, "output") && flags.Output != "json" {
					return fmt.Errorf("--json conflicts with --output %s", flags.Output)
				}
				flags.Output = "json"
			}
			if flags.Query != "" && flags.Output != "json" && flags.Output != "jsonl" {
				if flagOrAliasChanged(cmd, "output") {
					return fmt.Errorf("--jq requires --output json or jsonl (or --json)")
				}
				flags.Output = "json"
			}

			mode, err := outfmt.Parse(flags.Output)
			if err != nil {
				return err
			}
			ctx = outfmt.WithMode(ctx, mode)
			ctx = outfmt.WithCompact(ctx, flags.Compact)
			if flags.Query != "" {
				ctx = outfmt.WithQuery(ctx, flags.Query)
			}

			if flags.Quiet {
				cmd.SetErr(io.Discard)
			}

			switch strings.ToLower(strings.TrimSpace(flags.LogFormat)) {
			case "", "text":
				debug.SetupLogger(flags.Debug)
			case "json":
				slog.SetDefault(debug.NewLogger(os.Stderr, flags.Debug, "json"))
			default:
				return fmt.Errorf("--log-format must be text or json")
			}
			ctx = debug.WithDebug(ctx, flags.Debug)

			if flags.Timeout < 0 {
				return fmt.Errorf("--timeout must be >= 0")
			}

			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetContext(ctx)
	root.SetArgs(args)
	root.PersistentFlags().StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json|jsonl|ndjson (env INBOXQ_OUTPUT)")
	root.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Shorthand for --output json")
	root.PersistentFlags().StringVar(&flags.Query, "jq", "", "JQ expression to filter JSON output")
	root.PersistentFlags().BoolVar(&flags.Compact, "compact-json", false, "Compact JSON output (no indentation)")
	root.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flags.LogFormat, "log-format", "text", "Log format on stderr: text|json")
	root.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "Q", false, "Suppress notes on stderr")
	root.PersistentFlags().DurationVar(&flags.Timeout, "timeout", flags.Timeout, "HTTP request timeout (e.g., 30s, 2m)")
	root.PersistentFlags().StringVar(&flags.URL, "url", "", "Work on the filters of a shared URL or query string instead of the stored ones")
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "Settings file (env INBOXQ_CONFIG)")

	flagAlias(root.PersistentFlags(), "output", "out")
	flagAlias(root.PersistentFlags(), "jq", "query")
	flagAlias(root.PersistentFlags(), "compact-json", "cj")
	flagAlias(root.PersistentFlags(), "timeout", "to")

	root.AddCommand(newListCmd())
	root.AddCommand(newFilterCmd())
	root.AddCommand(newSortCmd())
	root.AddCommand(newPerPageCmd())
	root.AddCommand(newSavedCmd())
	root.AddCommand(newURLCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	targetCmd, err := root.ExecuteC()
	if err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), enhanceUnknownError(err, targetCmd)) //nolint:errcheck
		}
		return err
	}
	return nil
}

// enhanceUnknownError points at the right --help for flag errors.
func enhanceUnknownError(err error, targetCmd *cobra.Command) string {
	msg := err.Error()
	if !strings.Contains(msg, "unknown flag") && !strings.Contains(msg, "unknown shorthand flag") {
		return msg
	}
	helpCmd := "inboxq --help"
	if targetCmd != nil {
		if path := strings.TrimSpace(targetCmd.CommandPath()); path != "" {
			helpCmd = path + " --help"
		}
	}
	return fmt.Sprintf("%s\n\nRun %q to see supported flags.", msg, helpCmd)
}
