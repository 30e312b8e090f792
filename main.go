// i18n-genai: extracts translation keys from source code and fills in
// missing locale translations with a generative-language API.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/i18n-genai/i18n-genai/i18n"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

var logger = zerolog.Nop()

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newLogger returns a console logger on w. Colors are used only when w is a
// terminal.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !isTerminal(w),
		TimeFormat: time.TimeOnly,
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// msg formats like fmt.Sprintf, but leaves an argument-less message as is
// so that translated text containing '%' survives.
func msg(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func logInfo(format string, args ...any) {
	logger.Info().Msg(msg(format, args))
}

func logSuccess(format string, args ...any) {
	logger.Info().Bool("ok", true).Msg(msg(format, args))
}

func logWarning(format string, args ...any) {
	logger.Warn().Msg(msg(format, args))
}

func logError(format string, args ...any) {
	logger.Error().Msg(msg(format, args))
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configFile string
	verbose    bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "i18n-genai",
		Short: i18n.T("Extract translation keys and translate them with AI"),
		Long: `i18n-genai scans source files for t("key"), $t("key") and i18n.t("key")
calls, keeps a registry of every key in <locale_folder>/<storage_file>.json
and fills the per-locale JSON files with AI translations.

Commands:
  extract        Scan sources and register new keys
  status         Show translation progress per locale
  translate      Translate missing keys of one locale
  translate-all  Translate missing keys of every locale
  config         Print the effective configuration
  init           Write a configuration file
  auth           Manage provider API keys

AI Providers:
  google         Google AI (Gemini), API key
  groq           Groq, API key
  ollama         Ollama local server
  custom-openai  Custom OpenAI-compatible endpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(cmd.ErrOrStderr(), verbose)
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))
	root.PersistentFlags().StringVar(&configFile, "config", "", i18n.T("Configuration file (default: i18n-genai.yaml in the root)"))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, i18n.T("Enable debug logging"))

	root.AddCommand(
		newExtractCmd(),
		newStatusCmd(),
		newTranslateCmd(),
		newTranslateAllCmd(),
		newConfigCmd(),
		newInitCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	logger = newLogger(os.Stderr, false)

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "i18n-genai version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}
