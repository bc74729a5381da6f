package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chatwoot/inboxq/internal/config"
)

func TestConfigShowWithoutAccount(t *testing.T) {
	setupOfflineEnv(t, t.TempDir())

	out := run(t, "config", "show")
	for _, want := range []string{"config.yaml", "backend: file", "account: not configured"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShowMasksToken(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("INBOXQ_API_TOKEN", "abcdefghijklmnop")

	out := decodeJSON[configOutput](t, run(t, "config", "show", "--json"))
	if out.Account == nil {
		t.Fatal("expected account")
	}
	if out.Account.AccountID != 1 {
		t.Errorf("account id = %d", out.Account.AccountID)
	}
	if strings.Contains(out.Account.Token, "abcdefghijklmnop") {
		t.Errorf("token not masked: %q", out.Account.Token)
	}
	if out.Settings.Storage.Backend != "file" {
		t.Errorf("backend = %q", out.Settings.Storage.Backend)
	}
}

func TestConfigInitWritesDefaults(t *testing.T) {
	setupOfflineEnv(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "inboxq.yaml")

	run(t, "config", "init", "--config", path)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}

	var err error
	_ = captureStderr(t, func() {
		err = Execute(context.Background(), []string{"config", "init", "--config", path})
	})
	if err == nil {
		t.Error("expected error when the file exists")
	}
	run(t, "config", "init", "--config", path, "--force")

	settings, err := config.LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if settings.Server.Addr != config.DefaultSettings().Server.Addr {
		t.Errorf("server addr = %q", settings.Server.Addr)
	}
}

func TestConfigSettingsFileDrivesDefaults(t *testing.T) {
	env := setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "inboxq.yaml")
	data := "list:\n  perPage: 7\n  sortBy: created_at\n  sortOrder: asc\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	run(t, "list", "--config", path)
	q := env.service.last(t)
	if q.Get("per_page") != "7" || q.Get("sort_by") != "created_at" || q.Get("sort_order") != "asc" {
		t.Errorf("unexpected query: %v", q)
	}
}

func TestConfigAccountSetVerifiesAndStores(t *testing.T) {
	env := setupTestEnv(t)
	serverURL := env.server.URL
	setupOfflineEnv(t, env.stateDir)
	t.Cleanup(func() { _ = config.DeleteAccount() })

	run(t, "config", "account", "set", "--base-url", serverURL+"/", "--token", "secret-token", "--account-id", "1")

	account, err := config.LoadAccount()
	if err != nil {
		t.Fatalf("LoadAccount() error = %v", err)
	}
	if account.BaseURL != serverURL || account.APIToken != "secret-token" || account.AccountID != 1 {
		t.Errorf("stored account = %+v", account)
	}
	if account.PubsubToken != "pub-123" {
		t.Errorf("pubsub token = %q, want pub-123", account.PubsubToken)
	}

	// the stored account serves later commands
	run(t, "list")
	if env.service.requests() < 2 {
		t.Errorf("expected profile and list requests, got %d", env.service.requests())
	}

	run(t, "config", "account", "delete")
	if _, err := config.LoadAccount(); err == nil {
		t.Error("expected account to be removed")
	}
}

func TestConfigAccountSetRejectsBadURL(t *testing.T) {
	setupOfflineEnv(t, t.TempDir())

	var err error
	_ = captureStderr(t, func() {
		err = Execute(context.Background(), []string{"config", "account", "set",
			"--base-url", "ftp://example.com", "--token", "x", "--account-id", "1", "--verify=false"})
	})
	if err == nil {
		t.Fatal("expected error for ftp base URL")
	}
	if _, err := config.LoadAccount(); err == nil {
		t.Error("nothing should be stored")
	}
}
