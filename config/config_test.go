package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvModel, "")
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvBaseURL, "")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
	return p
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.File != "" {
		t.Fatalf("File = %q, want empty", cfg.File)
	}
	if cfg.LocaleDir() != filepath.Join(dir, "locales") {
		t.Fatalf("LocaleDir() = %q", cfg.LocaleDir())
	}
	if cfg.SourceDir() != filepath.Join(dir, "src") {
		t.Fatalf("SourceDir() = %q", cfg.SourceDir())
	}
	if !reflect.DeepEqual(cfg.Codes(), []string{"en", "fr"}) {
		t.Fatalf("Codes() = %v", cfg.Codes())
	}
	if cfg.Provider.Model != DefaultModel || cfg.MaxKeysPerRequest != DefaultMaxKeysPerRequest {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "i18n-genai.yaml", `
locale_folder: public/i18n
source_folder: app
default_locale: en
skip_default_locale: true
storage_translations_file: keys
locales:
  - code: en
    label: English
  - code: de
matches: [".vue", ".ts"]
max_keys_per_request: 10
provider:
  id: groq
  model: llama-3.3-70b-versatile
`)

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.File != filepath.Join(dir, "i18n-genai.yaml") {
		t.Fatalf("File = %q", cfg.File)
	}
	if cfg.LocaleFolder != "public/i18n" || cfg.SourceFolder != "app" || cfg.StorageTranslationsFile != "keys" {
		t.Fatalf("folders not loaded: %+v", cfg)
	}
	if !cfg.SkipDefaultLocale || cfg.MaxKeysPerRequest != 10 {
		t.Fatalf("flags not loaded: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Matches, []string{".vue", ".ts"}) {
		t.Fatalf("Matches = %v", cfg.Matches)
	}
	if cfg.Locales[1].Label != "German" {
		t.Fatalf("missing label not filled: %+v", cfg.Locales[1])
	}
	if cfg.Provider.ID != "groq" || cfg.Provider.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("provider not loaded: %+v", cfg.Provider)
	}

	targets := cfg.TargetLocales()
	if len(targets) != 1 || targets[0].Code != "de" {
		t.Fatalf("TargetLocales() = %v, want only de", targets)
	}
}

func TestLoadYAMLRejectsUnknownField(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "i18n-genai.yaml", "locale_fodler: typo\n")

	if _, err := Load(dir, ""); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadEmptyYAMLKeepsDefaults(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "i18n-genai.yml", "")

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LocaleFolder != DefaultLocaleFolder {
		t.Fatalf("LocaleFolder = %q", cfg.LocaleFolder)
	}
}

func TestLoadTOML(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "i18n-genai.toml", `
locale_folder = "lang"
max_keys_per_request = 5

[[locales]]
code = "es"
label = "Spanish"

[provider]
id = "ollama"
model = "qwen2.5"
timeout_seconds = 30
`)

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LocaleFolder != "lang" || cfg.MaxKeysPerRequest != 5 {
		t.Fatalf("values not loaded: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Codes(), []string{"es"}) {
		t.Fatalf("Codes() = %v, want [es]", cfg.Codes())
	}
	if cfg.Provider.ID != "ollama" || cfg.Provider.TimeoutSeconds != 30 {
		t.Fatalf("provider not loaded: %+v", cfg.Provider)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "custom.yaml", "locale_folder: elsewhere\n")

	cfg, err := Load(dir, "custom.yaml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LocaleFolder != "elsewhere" {
		t.Fatalf("LocaleFolder = %q", cfg.LocaleFolder)
	}

	if _, err := Load(dir, "missing.yaml"); err == nil {
		t.Fatal("expected error for missing explicit file")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "i18n-genai.yaml", "provider:\n  model: from-file\n")
	t.Setenv(EnvModel, "from-env")
	t.Setenv(EnvAPIKey, "secret-key")

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Provider.Model != "from-env" {
		t.Fatalf("Model = %q, want from-env", cfg.Provider.Model)
	}
	if cfg.Provider.APIKey != "secret-key" {
		t.Fatalf("APIKey = %q, want secret-key", cfg.Provider.APIKey)
	}
}

func TestLoadGeminiEnvOnlyAppliesToGoogle(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvProvider, "groq")
	t.Setenv(EnvAPIKey, "gemini-secret")
	t.Setenv(EnvModel, "gemini-2.5-pro")

	cfg, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Provider.ID != "groq" {
		t.Fatalf("ID = %q, want groq", cfg.Provider.ID)
	}
	if cfg.Provider.APIKey != "" {
		t.Fatalf("APIKey = %q, a Gemini key must not reach groq", cfg.Provider.APIKey)
	}
	if cfg.Provider.Model != DefaultModels["groq"] {
		t.Fatalf("Model = %q, want %q", cfg.Provider.Model, DefaultModels["groq"])
	}
}

func TestLoadModelDefaultsPerProvider(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{file: "", want: DefaultModel},
		{file: "provider:\n  id: ollama\n", want: "llama3.2"},
		{file: "provider:\n  id: groq\n  model: mixtral\n", want: "mixtral"},
		{file: "provider:\n  id: custom-openai\n", want: ""},
	}

	for _, tc := range tests {
		clearProviderEnv(t)
		dir := t.TempDir()
		writeFile(t, dir, "i18n-genai.yaml", tc.file)

		cfg, err := Load(dir, "")
		if err != nil {
			t.Fatalf("Load(%q) error: %v", tc.file, err)
		}
		if cfg.Provider.Model != tc.want {
			t.Fatalf("Load(%q) model = %q, want %q", tc.file, cfg.Provider.Model, tc.want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearProviderEnv(t)
	if err := os.Unsetenv(EnvBaseURL); err != nil {
		t.Fatalf("Unsetenv: %v", err)
	}
	dir := t.TempDir()
	writeFile(t, dir, ".env", EnvBaseURL+"=http://localhost:9999\n")

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Provider.BaseURL != "http://localhost:9999" {
		t.Fatalf("BaseURL = %q, want value from .env", cfg.Provider.BaseURL)
	}
}

func TestLocaleLookup(t *testing.T) {
	cfg := Default()

	l, err := cfg.Locale("fr")
	if err != nil || l.Label != "French" {
		t.Fatalf("Locale(fr) = %+v, %v", l, err)
	}

	_, err = cfg.Locale("xx")
	if !errors.Is(err, ErrUnknownLocale) {
		t.Fatalf("Locale(xx) error = %v, want ErrUnknownLocale", err)
	}
	if !strings.Contains(err.Error(), "en, fr") {
		t.Fatalf("error should list valid codes: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Config) {}, ok: true},
		{name: "no locales", mutate: func(c *Config) { c.Locales = nil }},
		{name: "duplicate code", mutate: func(c *Config) { c.Locales = append(c.Locales, Locale{Code: "fr"}) }},
		{name: "empty code", mutate: func(c *Config) { c.Locales = append(c.Locales, Locale{Code: " "}) }},
		{name: "code with separator", mutate: func(c *Config) { c.Locales = append(c.Locales, Locale{Code: "../x"}) }},
		{name: "code shadows registry", mutate: func(c *Config) { c.Locales = append(c.Locales, Locale{Code: "translations"}) }},
		{name: "empty locale folder", mutate: func(c *Config) { c.LocaleFolder = "" }},
		{name: "storage with path", mutate: func(c *Config) { c.StorageTranslationsFile = "a/b" }},
		{name: "negative batch", mutate: func(c *Config) { c.MaxKeysPerRequest = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("Validate() = nil, want error")
			}
		})
	}
}

func TestTemplateOmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKey = "do-not-write"

	out, err := Template(cfg)
	if err != nil {
		t.Fatalf("Template() error: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "do-not-write") {
		t.Fatalf("template leaked API key:\n%s", s)
	}
	for _, want := range []string{"locale_folder: locales", "code: fr", "model: gemini-2.0-flash"} {
		if !strings.Contains(s, want) {
			t.Fatalf("template missing %q:\n%s", want, s)
		}
	}
	if cfg.Provider.APIKey != "do-not-write" {
		t.Fatal("Template() must not mutate its input")
	}
}
