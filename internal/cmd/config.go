package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chatwoot/inboxq/internal/api"
	"github.com/chatwoot/inboxq/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Aliases: []string{"cfg"},
		Short:   "Manage credentials and settings",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigAccountCmd())

	return cmd
}

type accountOutput struct {
	BaseURL   string `json:"base_url"`
	AccountID int    `json:"account_id"`
	Token     string `json:"token"`
	Realtime  bool   `json:"realtime"`
}

type configOutput struct {
	SettingsPath string          `json:"settings_path"`
	Settings     config.Settings `json:"settings"`
	Account      *accountOutput  `json:"account"`
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Short:   "Show the effective settings and the configured account",
		Example: "inboxq config show",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			path := flags.ConfigPath
			if path == "" {
				p, err := config.SettingsPath()
				if err != nil {
					return err
				}
				path = p
			}
			settings, err := config.LoadSettings(flags.ConfigPath)
			if err != nil {
				return err
			}
			if settings.Storage.Redis.Password != "" {
				settings.Storage.Redis.Password = "********"
			}
			out := configOutput{SettingsPath: path, Settings: settings}

			account, err := config.LoadAccount()
			switch {
			case err == nil:
				out.Account = &accountOutput{
					BaseURL:   account.BaseURL,
					AccountID: account.AccountID,
					Token:     account.MaskedToken(),
					Realtime:  account.PubsubToken != "",
				}
			case !errors.Is(err, config.ErrNotConfigured):
				return err
			}

			if isJSON(cmd) {
				return newFormatter(cmd).Output(out)
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "# %s\n", path)
			data, err := yaml.Marshal(settings)
			if err != nil {
				return err
			}
			_, _ = w.Write(data)
			if out.Account == nil {
				_, _ = fmt.Fprintln(w, "\naccount: not configured")
				return nil
			}
			_, _ = fmt.Fprintf(w, "\naccount:\n  baseURL: %s\n  accountID: %d\n  token: %s\n",
				out.Account.BaseURL, out.Account.AccountID, out.Account.Token)
			return nil
		}),
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with the defaults",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			path := flags.ConfigPath
			if path == "" {
				p, err := config.SettingsPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultSettings().Save(path); err != nil {
				return err
			}
			if isJSON(cmd) {
				return newFormatter(cmd).Output(map[string]string{"settings_path": path})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the listing service account",
	}
	cmd.AddCommand(newConfigAccountSetCmd())
	cmd.AddCommand(newConfigAccountDeleteCmd())
	return cmd
}

func newConfigAccountSetCmd() *cobra.Command {
	var (
		baseURL   string
		token     string
		accountID int
		verify    bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the base URL, API token and account id in the keyring",
		Example: strings.TrimSpace(`
  inboxq config account set --base-url https://app.example.com --token abc123 --account-id 1
  echo "$TOKEN" | inboxq config account set --base-url https://app.example.com --token - --account-id 1
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if token == "-" {
				data, err := readLine(cmd)
				if err != nil {
					return err
				}
				token = data
			}
			if err := api.ValidateBaseURL(baseURL); err != nil {
				return err
			}
			account := config.Account{
				BaseURL:   strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
				APIToken:  strings.TrimSpace(token),
				AccountID: accountID,
			}
			if err := account.Validate(); err != nil {
				return err
			}

			if verify {
				// a credential check fails fast instead of retrying
				profile, err := newAPIClient(account, config.APISettings{}).Profile(cmdContext(cmd))
				if err != nil {
					return fmt.Errorf("verify credentials: %w", err)
				}
				account.PubsubToken = profile.PubsubToken
			}
			if err := config.SaveAccount(account); err != nil {
				return err
			}

			if isJSON(cmd) {
				return newFormatter(cmd).Output(accountOutput{
					BaseURL:   account.BaseURL,
					AccountID: account.AccountID,
					Token:     account.MaskedToken(),
					Realtime:  account.PubsubToken != "",
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved account %d at %s\n", account.AccountID, account.BaseURL)
			return nil
		}),
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Listing service base URL")
	cmd.Flags().StringVar(&token, "token", "", "API access token ('-' reads stdin)")
	cmd.Flags().IntVar(&accountID, "account-id", 0, "Account id")
	cmd.Flags().BoolVar(&verify, "verify", true, "Check the credentials against the profile endpoint")
	_ = cmd.MarkFlagRequired("base-url")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("account-id")
	flagAlias(cmd.Flags(), "base-url", "url-base")
	flagAlias(cmd.Flags(), "account-id", "aid")
	return cmd
}

func newConfigAccountDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		Short:   "Remove the stored account",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if err := config.DeleteAccount(); err != nil {
				return err
			}
			if !isJSON(cmd) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Account removed")
			}
			return nil
		}),
	}
}

func readLine(cmd *cobra.Command) (string, error) {
	var line string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &line); err != nil {
		return "", fmt.Errorf("read token from stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}
