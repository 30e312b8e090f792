package status

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i18n-genai/i18n-genai/config"
	"github.com/i18n-genai/i18n-genai/store"
)

type fakeDiffer map[string]store.Diff

func (f fakeDiffer) Diff(code string) (store.Diff, error) {
	d, ok := f[code]
	if !ok {
		return store.Diff{}, errors.New("permission denied")
	}
	return d, nil
}

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestReport(t *testing.T) {
	differ := fakeDiffer{
		"en": {Locale: "en", TranslatedCount: 2, TotalCount: 2, Percentage: 100},
		"fr": {Locale: "fr", TranslatedCount: 1, TotalCount: 2, Percentage: 50},
	}
	locales := []config.Locale{
		{Code: "en", Label: "English"},
		{Code: "de", Label: "German"},
		{Code: "fr", Label: "French"},
	}

	var out bytes.Buffer
	lines := Report(&out, differ, locales)

	require.Len(t, lines, 3)
	assert.NoError(t, lines[0].Err)
	assert.Error(t, lines[1].Err)
	assert.Equal(t, "French (fr): 1/2 (50%)", lines[2].String())
	assert.Equal(t,
		"English (en): 2/2 (100%)\n"+
			"German (de): warning: permission denied\n"+
			"French (fr): 1/2 (50%)\n",
		out.String())
}

func TestColorThresholds(t *testing.T) {
	tests := []struct {
		p    int
		want *color.Color
	}{
		{0, red},
		{49, red},
		{50, yellow},
		{99, yellow},
		{100, green},
	}
	for _, tc := range tests {
		assert.Same(t, tc.want, colorFor(tc.p), "percentage %d", tc.p)
	}
}

func TestReportAgainstStore(t *testing.T) {
	cfg := config.Default()
	cfg.Root = t.TempDir()
	s := store.New(cfg, zerolog.Nop())

	_, err := s.Register([]string{"a", "b", "c", "d"})
	require.NoError(t, err)
	require.NoError(t, s.Merge("fr", map[string]string{"a": "A", "b": "B", "c": "C"}))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.LocaleDir(), "en.json"), []byte("{oops"), 0644))

	var out bytes.Buffer
	Report(&out, s, cfg.Locales)
	assert.Equal(t, "English (en): 0/4 (0%)\nFrench (fr): 3/4 (75%)\n", out.String())
}
