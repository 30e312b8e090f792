// Package i18n translates the user-facing messages of the i18n-genai CLI.
//
// Catalogs are gettext .po files embedded from locales/{lang}/LC_MESSAGES/
// and loaded through gotext. Strings without a translation pass through
// unchanged.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "i18n-genai"

var po *gotext.Locale

// Init loads the catalog for lang. An empty lang is detected from
// LANGUAGE, LC_ALL, LC_MESSAGES and LANG, in that order.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates msgid and formats it with args.
func T(msgid string, args ...any) string {
	if po == nil {
		if len(args) == 0 {
			return msgid
		}
		return fmt.Sprintf(msgid, args...)
	}
	return po.Get(msgid, args...)
}

// N translates a message with plural forms and formats it with args.
func N(singular, plural string, n int, args ...any) string {
	if po == nil {
		msg := plural
		if n == 1 {
			msg = singular
		}
		if len(args) == 0 {
			return msg
		}
		return fmt.Sprintf(msg, args...)
	}
	return po.GetN(singular, plural, n, args...)
}

func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
