// Package status prints how complete each locale is.
package status

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/i18n-genai/i18n-genai/config"
	"github.com/i18n-genai/i18n-genai/store"
)

// Differ computes the diff of one locale against the registry.
type Differ interface {
	Diff(code string) (store.Diff, error)
}

// Line is the status of one locale. Err is set when its diff could not be
// computed.
type Line struct {
	Locale config.Locale
	Diff   store.Diff
	Err    error
}

// String renders the line without color.
func (l Line) String() string {
	if l.Err != nil {
		return fmt.Sprintf("%s (%s): %v", l.Locale.Label, l.Locale.Code, l.Err)
	}
	return fmt.Sprintf("%s (%s): %d/%d (%d%%)",
		l.Locale.Label, l.Locale.Code, l.Diff.TranslatedCount, l.Diff.TotalCount, l.Diff.Percentage)
}

var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
)

func colorFor(percentage int) *color.Color {
	switch {
	case percentage < 50:
		return red
	case percentage < 100:
		return yellow
	default:
		return green
	}
}

// Report writes one line per locale to w and returns the lines. A locale
// whose diff fails is reported as a warning and does not stop the others.
func Report(w io.Writer, d Differ, locales []config.Locale) []Line {
	lines := make([]Line, 0, len(locales))
	for _, l := range locales {
		diff, err := d.Diff(l.Code)
		line := Line{Locale: l, Diff: diff, Err: err}
		lines = append(lines, line)

		if err != nil {
			fmt.Fprintf(w, "%s (%s): %s %v\n", l.Label, l.Code, yellow.Sprint("warning:"), err)
			continue
		}
		fmt.Fprintf(w, "%s (%s): %d/%d (%s)\n",
			l.Label, l.Code, diff.TranslatedCount, diff.TotalCount,
			colorFor(diff.Percentage).Sprintf("%d%%", diff.Percentage))
	}
	return lines
}
