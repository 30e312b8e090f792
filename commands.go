package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/i18n-genai/i18n-genai/config"
	"github.com/i18n-genai/i18n-genai/extract"
	"github.com/i18n-genai/i18n-genai/i18n"
	"github.com/i18n-genai/i18n-genai/provider"
	"github.com/i18n-genai/i18n-genai/settings"
	"github.com/i18n-genai/i18n-genai/status"
	"github.com/i18n-genai/i18n-genai/store"
	"github.com/i18n-genai/i18n-genai/translate"
)

// project is the loaded configuration plus the store built from it.
type project struct {
	cfg   *config.Config
	store *store.Store
}

func loadProject() (*project, error) {
	cfg, err := config.Load(rootDir, configFile)
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		logger.Debug().Str("path", cfg.File).Msg("configuration loaded")
	}
	return &project{cfg: cfg, store: store.New(cfg, logger)}, nil
}

// ---------------------------------------------------------------------------
// extract (scan sources, register keys)
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: i18n.T("Scan source files and register translation keys"),
		Long: `Scan source_folder for files matching one of the configured extensions,
collect every t("key"), $t("key") and i18n.t("key") literal and append the
keys that are new to the registry file. Existing keys are never removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			return runExtract(cmd.OutOrStdout(), proj)
		},
	}
}

func runExtract(w io.Writer, proj *project) error {
	src := proj.cfg.SourceDir()
	logger.Debug().Str("path", src).Strs("matches", proj.cfg.Matches).Msg("scanning sources")

	keys, files, err := extract.DirStats(src, proj.cfg.Matches)
	if err != nil {
		return fmt.Errorf("extracting keys: %w", err)
	}
	added, err := proj.store.Register(keys)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, i18n.T("Found %d keys in %d files", len(keys), files))
	if added > 0 {
		logSuccess(i18n.N("%d new key added to %s", "%d new keys added to %s", added, added, proj.store.RegistryPath()))
	} else {
		logInfo(i18n.T("Registry is up to date"))
	}
	return nil
}

// ---------------------------------------------------------------------------
// status (read-only translation progress)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show translation progress per locale"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			for _, line := range status.Report(cmd.OutOrStdout(), proj.store, proj.cfg.Locales) {
				if line.Err != nil {
					logger.Debug().Err(line.Err).Str("locale", line.Locale.Code).Msg("diff failed")
				}
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// translate / translate-all
// ---------------------------------------------------------------------------

// translateFlags are shared by translate and translate-all.
type translateFlags struct {
	dryRun    bool
	apiKey    string
	provider  string
	model     string
	baseURL   string
	chunkSize int
}

func (f *translateFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&f.dryRun, "dry-run", false, i18n.T("Show what would be translated without calling the provider"))
	fs.StringVar(&f.apiKey, "api-key", "", i18n.T("API key (overrides environment, config and stored keys)"))
	fs.StringVar(&f.provider, "provider", "", i18n.T("AI provider: google, groq, ollama, custom-openai"))
	fs.StringVar(&f.model, "model", "", i18n.T("Model name"))
	fs.StringVar(&f.baseURL, "base-url", "", i18n.T("Custom API base URL"))
	fs.IntVar(&f.chunkSize, "chunk-size", 0, i18n.T("Keys per request (default: max_keys_per_request)"))
}

// apply overlays the flags onto cfg. Switching provider drops the key and
// model configured for the previous one.
func (f *translateFlags) apply(cfg *config.Config) {
	if f.provider != "" && f.provider != cfg.Provider.ID {
		cfg.Provider.ID = f.provider
		cfg.Provider.APIKey = ""
		cfg.Provider.Model = config.DefaultModels[f.provider]
	}
	if f.model != "" {
		cfg.Provider.Model = f.model
	}
	if f.baseURL != "" {
		cfg.Provider.BaseURL = f.baseURL
	}
	if f.chunkSize > 0 {
		cfg.MaxKeysPerRequest = f.chunkSize
	}
}

func completeProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	completions := make([]string, 0, len(provider.Known()))
	for _, p := range provider.Known() {
		completions = append(completions, fmt.Sprintf("%s\t%s", p.ID, p.Name))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// newGenerator builds the provider client for cfg. Replaced in tests.
var newGenerator = func(cfg *config.Config, apiKey string) (translate.Generator, error) {
	p := cfg.Provider
	p.APIKey = apiKey
	if p.BaseURL == "" {
		p.BaseURL = settings.GetBaseURL(p.ID)
	}
	return provider.New(p, logger)
}

// generatorFor returns a function that builds the generator on first use,
// so that dry runs and up-to-date locales never need credentials.
func generatorFor(cfg *config.Config, f *translateFlags) func() (translate.Generator, error) {
	return sync.OnceValues(func() (translate.Generator, error) {
		apiKey := settings.ResolveAPIKey(cfg.Provider.ID, f.apiKey, cfg.Provider.APIKey)
		gen, err := newGenerator(cfg, apiKey)
		if errors.Is(err, provider.ErrMissingAPIKey) {
			hint := config.EnvAPIKey
			if env := settings.EnvVarForProvider(cfg.Provider.ID); env != "" {
				hint = env
			}
			return nil, fmt.Errorf("%w (set %s, pass --api-key or run 'i18n-genai auth login')", err, hint)
		}
		return gen, err
	})
}

func newTranslateCmd() *cobra.Command {
	var flags translateFlags

	cmd := &cobra.Command{
		Use:   "translate <locale>",
		Short: i18n.T("Translate the missing keys of one locale"),
		Long: `Translate every registry key that has no value in <locale>.

Keys are sent to the provider in batches of max_keys_per_request with a
fixed pause between requests. A batch that fails is skipped; running the
command again picks up whatever is still missing.

Examples:
  i18n-genai translate fr
  i18n-genai translate de --dry-run
  i18n-genai translate es --provider groq --model llama-3.3-70b-versatile`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			flags.apply(proj.cfg)

			locale, err := proj.cfg.Locale(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runTranslate(ctx, cmd.OutOrStdout(), proj, locale, flags.dryRun, generatorFor(proj.cfg, &flags))
		},
	}

	flags.register(cmd.Flags())
	_ = cmd.RegisterFlagCompletionFunc("provider", completeProviders)
	cmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		cfg, err := config.Load(rootDir, configFile)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return cfg.Codes(), cobra.ShellCompDirectiveNoFileComp
	}

	return cmd
}

func newTranslateAllCmd() *cobra.Command {
	var flags translateFlags

	cmd := &cobra.Command{
		Use:   "translate-all",
		Short: i18n.T("Translate the missing keys of every locale"),
		Long: `Run translate for every configured locale, in declaration order.
The default locale is skipped when skip_default_locale is set.

A locale that fails does not stop the others; the command reports every
failure at the end and exits with an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			flags.apply(proj.cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runTranslateAll(ctx, cmd.OutOrStdout(), proj, flags.dryRun, generatorFor(proj.cfg, &flags))
		},
	}

	flags.register(cmd.Flags())
	_ = cmd.RegisterFlagCompletionFunc("provider", completeProviders)

	return cmd
}

func runTranslateAll(ctx context.Context, w io.Writer, proj *project, dryRun bool, gen func() (translate.Generator, error)) error {
	var errs []error
	for _, locale := range proj.cfg.TargetLocales() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := runTranslate(ctx, w, proj, locale, dryRun, gen); err != nil {
			logError("%s: %v", locale, err)
			errs = append(errs, fmt.Errorf("%s: %w", locale.Code, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s\n%w", i18n.N("%d locale failed", "%d locales failed", len(errs), len(errs)), errors.Join(errs...))
	}
	return nil
}

// runTranslate translates the missing keys of one locale and merges the
// results. A run that produces nothing is a warning, not an error.
func runTranslate(ctx context.Context, w io.Writer, proj *project, locale config.Locale, dryRun bool, gen func() (translate.Generator, error)) error {
	diff, err := proj.store.Diff(locale.Code)
	if err != nil {
		return err
	}
	if len(diff.UntranslatedKeys) == 0 {
		logInfo(i18n.T("%s: nothing to do", locale))
		return nil
	}

	size := proj.cfg.MaxKeysPerRequest
	if dryRun {
		chunks := translate.Chunk(diff.UntranslatedKeys, size)
		fmt.Fprintln(w, i18n.T("%s: %d keys to translate in %d requests", locale, len(diff.UntranslatedKeys), len(chunks)))
		for _, k := range diff.UntranslatedKeys {
			fmt.Fprintf(w, "  %s\n", k)
		}
		return nil
	}

	g, err := gen()
	if err != nil {
		return err
	}

	logInfo(i18n.T("%s: translating %d of %d keys", locale, len(diff.UntranslatedKeys), diff.TotalCount))
	tr := translate.New(g, translate.Options{
		ChunkSize:  size,
		Prompt:     proj.cfg.Prompt,
		OnProgress: progressFunc(logWriter(), locale, len(diff.UntranslatedKeys)),
	}, logger)

	res := tr.Translate(ctx, diff.UntranslatedKeys, locale)
	if res.Failed > 0 {
		logWarning(i18n.T("%s: %d of %d requests failed", locale, res.Failed, res.Chunks))
	}
	if len(res.Translations) == 0 {
		logWarning(i18n.T("%s: no translations received", locale))
		return res.Err
	}

	if err := proj.store.Merge(locale.Code, res.Translations); err != nil {
		return err
	}
	logSuccess(i18n.T("%s: %d/%d keys translated, saved to %s",
		locale, len(res.Translations), res.Requested, proj.store.LocalePath(locale.Code)))
	return res.Err
}

// logWriter is where log output and progress bars go.
var logWriter = func() io.Writer { return os.Stderr }

// progressFunc returns a progress callback drawing a bar on w, or nil when
// w is not a terminal.
func progressFunc(w io.Writer, locale config.Locale, total int) func(done, total int) {
	if !isTerminal(w) || verbose {
		return nil
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", locale.Code)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return func(done, _ int) {
		_ = bar.Set(done)
	}
}

// ---------------------------------------------------------------------------
// config (print effective configuration)
// ---------------------------------------------------------------------------

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: i18n.T("Print the effective configuration as JSON"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootDir, configFile)
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), cfg)
		},
	}
}

// maskedConfig returns a copy of cfg that is safe to print.
func maskedConfig(cfg *config.Config) *config.Config {
	out := *cfg
	out.Provider.APIKey = settings.MaskKey(cfg.Provider.APIKey)
	return &out
}

func printConfig(w io.Writer, cfg *config.Config) error {
	data, err := json.MarshalIndent(map[string]any{"config": maskedConfig(cfg)}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// ---------------------------------------------------------------------------
// init (write a configuration file)
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("Write a configuration file with default values"),
		Long: `Write a YAML configuration file with the default settings into the
project root. An existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootDir, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", config.FileNames[0], i18n.T("Configuration file to create"))

	return cmd
}

func runInit(root, file string) error {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("init writes YAML, %s must end in .yaml or .yml", file)
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(root, file)
	}

	if _, err := os.Stat(file); err == nil {
		return fmt.Errorf("%s already exists", file)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	data, err := config.Template(config.Default())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(file), err)
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	logSuccess(i18n.T("Created %s", file))
	return nil
}
