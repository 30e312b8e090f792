// Package settings stores per-user provider credentials for i18n-genai.
//
// Credentials live in the XDG data directory:
//
//	$XDG_DATA_HOME/i18n-genai/auth.json  (default: ~/.local/share/i18n-genai/)
//
// The file is a JSON object keyed by provider ID. It is written with 0600
// permissions.
//
// Lookup order for API keys:
//  1. --api-key flag
//  2. provider-specific environment variable (GEMINI_API_KEY, GROQ_API_KEY, ...)
//  3. the project configuration
//  4. this credential store
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

const (
	dataDirName = "i18n-genai"
	fileName    = "auth.json"

	typeAPI = "api"
)

// Info is the stored entry for one provider.
type Info struct {
	// Type is always "api" for now.
	Type string `json:"type"`
	// Key is the provider API key.
	Key string `json:"key,omitempty"`
	// BaseURL is the endpoint for custom OpenAI-compatible servers.
	BaseURL string `json:"baseUrl,omitempty"`
}

// IsAPI reports whether the entry holds an API key.
func (i *Info) IsAPI() bool {
	return i.Type == typeAPI
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// DataDir returns the i18n-genai data directory, honoring $XDG_DATA_HOME.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json path for display, or "" if it cannot be
// determined.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store. A missing file is an empty store; an
// unreadable or malformed one is an error.
func Load() (Store, error) {
	path, err := filePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(Store), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if store == nil {
		store = make(Store)
	}
	return store, nil
}

// Save writes the credential store with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the entry for a provider, or nil.
func Get(providerID string) *Info {
	store, err := Load()
	if err != nil {
		return nil
	}
	return store[providerID]
}

// Set stores an entry for a provider, replacing any previous one.
func Set(providerID string, info *Info) error {
	store, err := Load()
	if err != nil {
		return err
	}
	store[providerID] = info
	return Save(store)
}

// Remove deletes the entry for a provider. Removing a missing entry is not
// an error.
func Remove(providerID string) error {
	store, err := Load()
	if err != nil {
		return err
	}
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// RemoveAll deletes the credential file.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// Providers returns the IDs with stored credentials, sorted.
func Providers() []string {
	store, err := Load()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(store))
	for id := range store {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// SetAPIKey stores an API key for a provider, keeping a stored base URL.
func SetAPIKey(providerID, key string) error {
	info := &Info{Type: typeAPI, Key: key}
	if prev := Get(providerID); prev != nil {
		info.BaseURL = prev.BaseURL
	}
	return Set(providerID, info)
}

// SetAPIKeyWithBaseURL stores an API key together with an endpoint.
func SetAPIKeyWithBaseURL(providerID, key, baseURL string) error {
	return Set(providerID, &Info{Type: typeAPI, Key: key, BaseURL: baseURL})
}

// GetAPIKey returns the stored API key for a provider, or "".
func GetAPIKey(providerID string) string {
	info := Get(providerID)
	if info == nil || !info.IsAPI() {
		return ""
	}
	return info.Key
}

// GetBaseURL returns the stored base URL for a provider, or "".
func GetBaseURL(providerID string) string {
	info := Get(providerID)
	if info == nil {
		return ""
	}
	return info.BaseURL
}

// EnvVarForProvider returns the environment variable holding the API key
// for a provider, or "" when there is none.
func EnvVarForProvider(providerID string) string {
	switch providerID {
	case "google":
		return "GEMINI_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	case "custom-openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// ResolveAPIKey picks the API key for a provider: flag, then the
// provider's environment variable, then the configured value, then the
// credential store.
func ResolveAPIKey(providerID, flagValue, configured string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := EnvVarForProvider(providerID); env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if configured != "" {
		return configured
	}
	return GetAPIKey(providerID)
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
