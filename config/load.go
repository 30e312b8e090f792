package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/i18n-genai/i18n-genai/langmeta"
)

// FileNames lists the configuration files searched for in the project root,
// in priority order.
var FileNames = []string{"i18n-genai.yaml", "i18n-genai.yml", "i18n-genai.toml"}

// Environment variables that override file values.
const (
	EnvAPIKey   = "GEMINI_API_KEY"
	EnvModel    = "GEMINI_API_MODEL"
	EnvProvider = "I18N_GENAI_PROVIDER"
	EnvBaseURL  = "I18N_GENAI_BASE_URL"
)

// Load builds the configuration for the project at rootDir.
//
// Values are layered: defaults, then the configuration file (explicit path,
// or the first of FileNames found in rootDir), then .env and process
// environment variables. An unset model falls back to DefaultModels for the
// provider. Missing locale labels are filled from langmeta.
func Load(rootDir, explicitFile string) (*Config, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	cfg := Default()
	cfg.Root = absRoot
	cfg.Provider.Model = ""

	if err := godotenv.Load(filepath.Join(absRoot, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	path, err := findFile(absRoot, explicitFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.File = path
	}

	applyEnv(cfg)
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModels[cfg.Provider.ID]
	}
	fillLabels(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findFile resolves the configuration file path. Returns "" when no file
// exists and none was requested explicitly.
func findFile(root, explicit string) (string, error) {
	if explicit != "" {
		if !filepath.IsAbs(explicit) {
			explicit = filepath.Join(root, explicit)
		}
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	for _, name := range FileNames {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", nil
}

// decodeFile overlays the file's values onto cfg. Unknown keys are rejected
// so that typos do not silently fall back to defaults.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// applyEnv overlays the environment. The Gemini variables only apply while
// the provider is google; other providers read their own key variable at
// resolution time.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvProvider)); v != "" {
		cfg.Provider.ID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.Provider.BaseURL = v
	}
	if cfg.Provider.ID != DefaultProviderID {
		return
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		cfg.Provider.Model = v
	}
}

func fillLabels(cfg *Config) {
	for i := range cfg.Locales {
		cfg.Locales[i].Code = strings.TrimSpace(cfg.Locales[i].Code)
		if strings.TrimSpace(cfg.Locales[i].Label) == "" {
			cfg.Locales[i].Label = langmeta.Resolve(cfg.Locales[i].Code).EnglishName
		}
	}
}

// Template renders cfg as a commented YAML configuration file suitable for
// `i18n-genai init`. Secrets are never written.
func Template(cfg *Config) ([]byte, error) {
	out := *cfg
	out.Provider.APIKey = ""

	body, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("# i18n-genai configuration.\n")
	b.WriteString("# The provider API key is read from " + EnvAPIKey + " or the credentials store.\n")
	b.Write(body)
	return b.Bytes(), nil
}
