// Package config resolves listing-service credentials and local settings.
//
// Credentials come from INBOXQ_* environment variables or the OS keyring.
// Settings live in a YAML file under the user config directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName = "inboxq"
	accountKey  = "account"

	EnvBaseURL   = "INBOXQ_BASE_URL"
	EnvAPIToken  = "INBOXQ_API_TOKEN"
	EnvAccountID = "INBOXQ_ACCOUNT_ID"

	envKeyringBackend  = "INBOXQ_KEYRING_BACKEND"
	envKeyringPassword = "INBOXQ_KEYRING_PASSWORD"
	envCredentialsDir  = "INBOXQ_CREDENTIALS_DIR"

	keyringBackendAuto   = "auto"
	keyringBackendFile   = "file"
	keyringBackendSystem = "system"
)

// openKeyring can be replaced in tests to use an in-memory keyring.
var openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
	return keyring.Open(cfg)
}

var userConfigDir = os.UserConfigDir

var stdinHasTTY = func() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// SetOpenKeyring allows replacing the keyring opener for testing.
// Returns a cleanup function that restores the original.
func SetOpenKeyring(fn func(keyring.Config) (keyring.Keyring, error)) func() {
	original := openKeyring
	openKeyring = fn
	return func() { openKeyring = original }
}

// OpenKeyring opens the inboxq keyring with the configured backend.
func OpenKeyring() (keyring.Keyring, error) {
	return openKeyring(keyringConfig())
}

// Account holds the listing service connection details.
type Account struct {
	BaseURL     string `json:"base_url"`
	APIToken    string `json:"api_token"`
	AccountID   int    `json:"account_id"`
	PubsubToken string `json:"pubsub_token,omitempty"`
}

// ErrNotConfigured is returned when no account is configured.
var ErrNotConfigured = errors.New("inboxq not configured - run 'inboxq config account set' or set INBOXQ_BASE_URL")

func keyringConfig() keyring.Config {
	cfg := keyring.Config{
		ServiceName: serviceName,
	}

	backend := keyringBackendMode()
	if backend == keyringBackendSystem {
		return cfg
	}

	configureFileBackend(&cfg)

	// Headless Linux has no secret service; go straight to the encrypted file.
	if shouldForceFileBackend(runtime.GOOS, backend, os.Getenv("DBUS_SESSION_BUS_ADDRESS")) {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	}

	return cfg
}

func keyringBackendMode() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envKeyringBackend))) {
	case keyringBackendFile:
		return keyringBackendFile
	case keyringBackendSystem, "os", "native":
		return keyringBackendSystem
	default:
		return keyringBackendAuto
	}
}

func shouldForceFileBackend(goos, backend, dbusAddr string) bool {
	if backend == keyringBackendFile {
		return true
	}
	if backend != keyringBackendAuto {
		return false
	}
	return goos == "linux" && strings.TrimSpace(dbusAddr) == ""
}

func configureFileBackend(cfg *keyring.Config) {
	cfg.FileDir = filepath.Join(credentialsDir(), "keyring")
	cfg.FilePasswordFunc = keyringFilePassword
}

// Dir returns the directory holding the keyring file backend and the
// optional .env file.
func Dir() string {
	return credentialsDir()
}

func credentialsDir() string {
	if dir := strings.TrimSpace(os.Getenv(envCredentialsDir)); dir != "" {
		return dir
	}
	if dir, err := userConfigDir(); err == nil && strings.TrimSpace(dir) != "" {
		return filepath.Join(dir, serviceName)
	}
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return filepath.Join(home, ".config", serviceName)
	}
	return filepath.Join(os.TempDir(), serviceName)
}

func keyringFilePassword(prompt string) (string, error) {
	if password, ok := os.LookupEnv(envKeyringPassword); ok && strings.TrimSpace(password) != "" {
		return password, nil
	}
	if !stdinHasTTY() {
		return "", fmt.Errorf("set %s when using file keyring in non-interactive environments", envKeyringPassword)
	}
	return keyring.TerminalPrompt(prompt)
}

// LoadAccount returns credentials from the environment when INBOXQ_BASE_URL
// is set, otherwise from the keyring.
func LoadAccount() (Account, error) {
	if baseURL := strings.TrimSpace(os.Getenv(EnvBaseURL)); baseURL != "" {
		token := strings.TrimSpace(os.Getenv(EnvAPIToken))
		accountIDStr := strings.TrimSpace(os.Getenv(EnvAccountID))
		if token == "" || accountIDStr == "" {
			return Account{}, fmt.Errorf("environment variables %s, %s, and %s must all be set", EnvBaseURL, EnvAPIToken, EnvAccountID)
		}
		accountID, err := strconv.Atoi(accountIDStr)
		if err != nil || accountID <= 0 {
			return Account{}, fmt.Errorf("%s must be a positive integer", EnvAccountID)
		}
		return Account{
			BaseURL:   strings.TrimSuffix(baseURL, "/"),
			APIToken:  token,
			AccountID: accountID,
		}, nil
	}

	ring, err := OpenKeyring()
	if err != nil {
		return Account{}, fmt.Errorf("failed to open keyring: %w", err)
	}
	item, err := ring.Get(accountKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Account{}, ErrNotConfigured
		}
		return Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	var account Account
	if err := json.Unmarshal(item.Data, &account); err != nil {
		return Account{}, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return account, nil
}

// SaveAccount stores the credentials in the keyring.
func SaveAccount(account Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	account.BaseURL = strings.TrimSuffix(strings.TrimSpace(account.BaseURL), "/")

	ring, err := OpenKeyring()
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := ring.Set(keyring.Item{
		Key:  accountKey,
		Data: data,
	}); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// DeleteAccount removes the stored credentials. Deleting nothing is not an
// error.
func DeleteAccount() error {
	ring, err := OpenKeyring()
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}
	if err := ring.Remove(accountKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	return nil
}

// Validate checks that the account can reach a listing service.
func (a Account) Validate() error {
	if strings.TrimSpace(a.BaseURL) == "" {
		return fmt.Errorf("base URL is required")
	}
	if !strings.HasPrefix(a.BaseURL, "http://") && !strings.HasPrefix(a.BaseURL, "https://") {
		return fmt.Errorf("base URL must start with http:// or https://")
	}
	if strings.TrimSpace(a.APIToken) == "" {
		return fmt.Errorf("API token is required")
	}
	if a.AccountID <= 0 {
		return fmt.Errorf("account ID must be a positive integer")
	}
	return nil
}

// MaskedToken returns the token with all but the last four characters hidden.
func (a Account) MaskedToken() string {
	if len(a.APIToken) <= 4 {
		return strings.Repeat("*", len(a.APIToken))
	}
	return strings.Repeat("*", len(a.APIToken)-4) + a.APIToken[len(a.APIToken)-4:]
}
