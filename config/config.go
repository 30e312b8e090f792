// Package config holds the i18n-genai settings: where locale files live,
// which sources to scan for translation keys, the configured locales and
// the AI provider used to fill in missing translations.
//
// A *Config is built once by Load and passed explicitly to every operation.
// There is no package-level default instance.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnknownLocale is returned by Config.Locale for codes that are not configured.
var ErrUnknownLocale = errors.New("unknown locale")

// Defaults mirror the values used when no configuration file is present.
const (
	DefaultLocaleFolder      = "locales"
	DefaultSourceFolder      = "src"
	DefaultLocaleCode        = "en"
	DefaultStorageFile       = "translations"
	DefaultMaxKeysPerRequest = 50
	DefaultProviderID        = "google"
	DefaultModel             = "gemini-2.0-flash"
)

// DefaultModels holds the model used for a provider when none is
// configured. Providers missing here need an explicit model.
var DefaultModels = map[string]string{
	"google": DefaultModel,
	"groq":   "llama-3.3-70b-versatile",
	"ollama": "llama3.2",
}

// Locale identifies a target language.
type Locale struct {
	// Code is the file-system and lookup identifier (e.g. "fr", "pt-BR").
	Code string `yaml:"code" toml:"code" json:"code"`
	// Label is the display name passed to the translation provider.
	Label string `yaml:"label,omitempty" toml:"label,omitempty" json:"label"`
}

// String returns "Label (code)".
func (l Locale) String() string {
	if l.Label == "" {
		return l.Code
	}
	return fmt.Sprintf("%s (%s)", l.Label, l.Code)
}

// Provider selects and configures the AI translation service.
type Provider struct {
	// ID is the provider identifier: google, groq, ollama, custom-openai.
	ID string `yaml:"id,omitempty" toml:"id,omitempty" json:"id"`
	// Model is the model identifier passed to the provider.
	Model string `yaml:"model,omitempty" toml:"model,omitempty" json:"model"`
	// APIKey authenticates against the provider. Usually supplied through
	// the environment or the credentials store rather than the file.
	APIKey string `yaml:"api_key,omitempty" toml:"api_key,omitempty" json:"apiKey,omitempty"`
	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url,omitempty" toml:"base_url,omitempty" json:"baseUrl,omitempty"`
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy,omitempty" toml:"proxy,omitempty" json:"proxy,omitempty"`
	// TimeoutSeconds is the per-request timeout (0 = provider default).
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty" json:"timeoutSeconds,omitempty"`
}

// Config is the complete tool configuration.
type Config struct {
	LocaleFolder            string   `yaml:"locale_folder" toml:"locale_folder" json:"localeFolder"`
	SourceFolder            string   `yaml:"source_folder" toml:"source_folder" json:"sourceFolder"`
	DefaultLocale           string   `yaml:"default_locale" toml:"default_locale" json:"defaultLocale"`
	SkipDefaultLocale       bool     `yaml:"skip_default_locale" toml:"skip_default_locale" json:"skipDefaultLocale"`
	StorageTranslationsFile string   `yaml:"storage_translations_file" toml:"storage_translations_file" json:"storageTranslationsFile"`
	Locales                 []Locale `yaml:"locales" toml:"locales" json:"locales"`
	Matches                 []string `yaml:"matches" toml:"matches" json:"matches"`
	MaxKeysPerRequest       int      `yaml:"max_keys_per_request" toml:"max_keys_per_request" json:"maxKeysPerRequest"`
	// Prompt overrides the built-in translation prompt. Supports the
	// {{targetLang}} and {{content}} placeholders.
	Prompt   string   `yaml:"prompt,omitempty" toml:"prompt,omitempty" json:"prompt,omitempty"`
	Provider Provider `yaml:"provider" toml:"provider" json:"provider"`

	// Root is the directory relative folders are resolved against.
	Root string `yaml:"-" toml:"-" json:"-"`
	// File is the configuration file that was loaded (empty for defaults).
	File string `yaml:"-" toml:"-" json:"-"`
}

// Default returns a fresh configuration populated with default values.
func Default() *Config {
	return &Config{
		LocaleFolder:            DefaultLocaleFolder,
		SourceFolder:            DefaultSourceFolder,
		DefaultLocale:           DefaultLocaleCode,
		StorageTranslationsFile: DefaultStorageFile,
		Locales: []Locale{
			{Code: "en", Label: "English"},
			{Code: "fr", Label: "French"},
		},
		Matches:           []string{".ts", ".tsx", ".js", ".jsx"},
		MaxKeysPerRequest: DefaultMaxKeysPerRequest,
		Provider: Provider{
			ID:    DefaultProviderID,
			Model: DefaultModel,
		},
		Root: ".",
	}
}

// LocaleDir returns the absolute-or-root-relative locale folder.
func (c *Config) LocaleDir() string {
	return c.resolve(c.LocaleFolder)
}

// SourceDir returns the absolute-or-root-relative source folder.
func (c *Config) SourceDir() string {
	return c.resolve(c.SourceFolder)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Codes returns the configured locale codes in declaration order.
func (c *Config) Codes() []string {
	codes := make([]string, 0, len(c.Locales))
	for _, l := range c.Locales {
		codes = append(codes, l.Code)
	}
	return codes
}

// Locale looks up a configured locale by code.
func (c *Config) Locale(code string) (Locale, error) {
	for _, l := range c.Locales {
		if l.Code == code {
			return l, nil
		}
	}
	return Locale{}, fmt.Errorf("%w %q, use one of: %s", ErrUnknownLocale, code, strings.Join(c.Codes(), ", "))
}

// TargetLocales returns the locales a translate-all run should visit,
// leaving out the default locale when SkipDefaultLocale is set.
func (c *Config) TargetLocales() []Locale {
	var out []Locale
	for _, l := range c.Locales {
		if c.SkipDefaultLocale && l.Code == c.DefaultLocale {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Validate checks the configuration for values the core cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LocaleFolder) == "" {
		return errors.New("config: locale_folder must not be empty")
	}
	if strings.TrimSpace(c.StorageTranslationsFile) == "" {
		return errors.New("config: storage_translations_file must not be empty")
	}
	if strings.ContainsAny(c.StorageTranslationsFile, `/\`) {
		return fmt.Errorf("config: storage_translations_file %q must be a bare file name", c.StorageTranslationsFile)
	}
	if len(c.Locales) == 0 {
		return errors.New("config: at least one locale is required")
	}
	if c.MaxKeysPerRequest < 0 {
		return fmt.Errorf("config: max_keys_per_request must be positive, got %d", c.MaxKeysPerRequest)
	}

	seen := make(map[string]bool, len(c.Locales))
	for _, l := range c.Locales {
		code := strings.TrimSpace(l.Code)
		if code == "" {
			return errors.New("config: locale code must not be empty")
		}
		if strings.ContainsAny(code, `/\`) {
			return fmt.Errorf("config: locale code %q must not contain path separators", code)
		}
		if code == c.StorageTranslationsFile {
			return fmt.Errorf("config: locale code %q collides with the registry file name", code)
		}
		if seen[code] {
			return fmt.Errorf("config: duplicate locale code %q", code)
		}
		seen[code] = true
	}
	return nil
}
