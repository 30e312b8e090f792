package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/i18n-genai/i18n-genai/i18n"
	"github.com/i18n-genai/i18n-genai/provider"
	"github.com/i18n-genai/i18n-genai/settings"
)

// ---------------------------------------------------------------------------
// auth (stored provider API keys)
// ---------------------------------------------------------------------------

var (
	headerColor = color.New(color.FgBlue, color.Bold)
	okColor     = color.New(color.FgGreen)
	missColor   = color.New(color.FgRed)
)

// keyHelp tells the user where to get an API key.
var keyHelp = map[string]string{
	provider.Google: "https://aistudio.google.com/apikey",
	provider.Groq:   "https://console.groq.com/keys",
}

// authProviders returns the providers that can store credentials.
func authProviders() []provider.Info {
	var out []provider.Info
	for _, p := range provider.Known() {
		if p.NeedsKey || p.ID == provider.CustomOpenAI {
			out = append(out, p)
		}
	}
	return out
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: i18n.T("Manage provider API keys"),
		Long: `Manage the API keys stored in $XDG_DATA_HOME/i18n-genai/auth.json.

Keys given with --api-key, in the provider's environment variable or in
the configuration file take precedence over stored keys.

Examples:
  i18n-genai auth login --provider google   Store a Google AI API key
  i18n-genai auth logout --provider google  Remove the Google API key
  i18n-genai auth logout                    Remove all credentials
  i18n-genai auth list                      Show stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

func completeAuthProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var completions []string
	for _, p := range authProviders() {
		completions = append(completions, fmt.Sprintf("%s\t%s", p.ID, p.Name))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func newAuthLoginCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "login",
		Short: i18n.T("Store an API key for a provider"),
		Long: `Store an API key for a provider. The key is read from standard input.

If --provider is not specified, you will be prompted to choose.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewScanner(cmd.InOrStdin())
			return runAuthLogin(in, cmd.ErrOrStderr(), providerID)
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", i18n.T("Provider to authenticate"))
	_ = cmd.RegisterFlagCompletionFunc("provider", completeAuthProviders)

	return cmd
}

func readLine(in *bufio.Scanner) (string, error) {
	if !in.Scan() {
		if err := in.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no input received")
	}
	return strings.TrimSpace(in.Text()), nil
}

func runAuthLogin(in *bufio.Scanner, w io.Writer, providerID string) error {
	choices := authProviders()

	if providerID == "" {
		fmt.Fprintln(w)
		headerColor.Fprintln(w, i18n.T("Select provider to authenticate:"))
		fmt.Fprintln(w)
		for i, p := range choices {
			fmt.Fprintf(w, "  %d. %-14s %s\n", i+1, p.ID, p.Name)
		}
		fmt.Fprintf(w, "\n%s ", i18n.T("Enter choice (number or name):"))

		choice, err := readLine(in)
		if err != nil {
			return err
		}
		for i, p := range choices {
			if choice == fmt.Sprint(i+1) || choice == p.ID {
				providerID = p.ID
				break
			}
		}
		if providerID == "" {
			return fmt.Errorf("invalid choice %q, use: i18n-genai auth login --provider PROVIDER", choice)
		}
	}

	info, ok := provider.Lookup(providerID)
	if !ok || !(info.NeedsKey || info.ID == provider.CustomOpenAI) {
		return fmt.Errorf("provider %q does not take an API key, use one of: %s", providerID, strings.Join(authIDs(), ", "))
	}

	fmt.Fprintln(w)
	headerColor.Fprintf(w, "%s: %s\n", info.Name, i18n.T("API key setup"))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	if url := keyHelp[info.ID]; url != "" {
		fmt.Fprintf(w, "  %s %s\n\n", i18n.T("Get your API key from:"), okColor.Sprint(url))
	}

	var baseURL string
	if info.ID == provider.CustomOpenAI {
		current := settings.GetBaseURL(info.ID)
		if current != "" {
			fmt.Fprintf(w, "  %s [%s]: ", i18n.T("Endpoint URL"), current)
		} else {
			fmt.Fprintf(w, "  %s: ", i18n.T("Endpoint URL"))
		}
		line, err := readLine(in)
		if err != nil {
			return err
		}
		baseURL = line
		if baseURL == "" {
			baseURL = current
		}
		if baseURL == "" {
			return errors.New("no endpoint URL provided")
		}
	}

	existing := settings.GetAPIKey(info.ID)
	if existing != "" {
		fmt.Fprintf(w, "  %s %s\n", i18n.T("Current key:"), settings.MaskKey(existing))
		fmt.Fprintf(w, "  %s ", i18n.T("Enter new key to replace, or press Enter to keep:"))
	} else {
		fmt.Fprintf(w, "  %s ", i18n.T("Enter API key:"))
	}

	key, err := readLine(in)
	if err != nil {
		return err
	}
	if key == "" {
		key = existing
	}
	if key == "" && info.NeedsKey {
		return errors.New("no API key provided")
	}

	if info.ID == provider.CustomOpenAI {
		err = settings.SetAPIKeyWithBaseURL(info.ID, key, baseURL)
	} else {
		err = settings.SetAPIKey(info.ID, key)
	}
	if err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}

	logSuccess(i18n.T("%s credentials saved to %s", info.Name, settings.FilePath()))
	return nil
}

func authIDs() []string {
	var ids []string
	for _, p := range authProviders() {
		ids = append(ids, p.ID)
	}
	return ids
}

func newAuthLogoutCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: i18n.T("Remove stored credentials"),
		Long: `Remove stored credentials for one or all providers.

If --provider is not specified, credentials for ALL providers are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerID == "" {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess(i18n.T("All stored credentials removed"))
				return nil
			}
			if _, ok := provider.Lookup(providerID); !ok {
				return fmt.Errorf("unknown provider %q, run 'i18n-genai auth list' to see providers", providerID)
			}
			if err := settings.Remove(providerID); err != nil {
				return fmt.Errorf("removing %s credentials: %w", providerID, err)
			}
			logSuccess(i18n.T("%s credentials removed", providerID))
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", i18n.T("Provider to logout (default: all)"))
	_ = cmd.RegisterFlagCompletionFunc("provider", completeAuthProviders)

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   i18n.T("Show stored credentials"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := settings.Load(); err != nil {
				return err
			}
			printAuthList(cmd.OutOrStdout())
			return nil
		},
	}
}

func printAuthList(w io.Writer) {
	headerColor.Fprintln(w, i18n.T("Stored Credentials"))
	fmt.Fprintln(w, strings.Repeat("─", 60))

	for _, p := range authProviders() {
		entry := settings.Get(p.ID)
		switch {
		case entry != nil && entry.Key != "":
			fmt.Fprintf(w, "  %-14s %s (key: %s)\n", p.ID, okColor.Sprint(i18n.T("configured")), settings.MaskKey(entry.Key))
		case entry != nil && entry.BaseURL != "":
			fmt.Fprintf(w, "  %-14s %s (no key)\n", p.ID, okColor.Sprint(i18n.T("configured")))
		default:
			fmt.Fprintf(w, "  %-14s %s\n", p.ID, missColor.Sprint(i18n.T("not configured")))
		}
		if entry != nil && entry.BaseURL != "" {
			fmt.Fprintf(w, "  %14s endpoint: %s\n", "", entry.BaseURL)
		}
	}

	fmt.Fprintln(w)
	headerColor.Fprintln(w, i18n.T("Environment Variables"))
	for _, p := range authProviders() {
		env := settings.EnvVarForProvider(p.ID)
		if env == "" {
			continue
		}
		if v := os.Getenv(env); v != "" {
			fmt.Fprintf(w, "  %-16s %s %s\n", env, okColor.Sprint(settings.MaskKey(v)), i18n.T("(overrides stored keys)"))
		} else {
			fmt.Fprintf(w, "  %-16s %s\n", env, missColor.Sprint(i18n.T("not set")))
		}
	}
}
