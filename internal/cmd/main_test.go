package cmd

import (
	"os"
	"testing"

	"github.com/99designs/keyring"

	"github.com/chatwoot/inboxq/internal/config"
)

func TestMain(m *testing.M) {
	// keep a shell INBOXQ_OUTPUT=json from changing text assertions
	_ = os.Setenv("INBOXQ_OUTPUT", "text")

	ring := keyring.NewArrayKeyring(nil)
	cleanup := config.SetOpenKeyring(func(cfg keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	})
	code := m.Run()
	cleanup()
	os.Exit(code)
}
