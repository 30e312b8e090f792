// Package translate fills in missing translations for one locale by sending
// the untranslated keys to a text-generation provider in fixed-size chunks.
//
// Chunks are processed strictly one after another with a fixed pause in
// between. A chunk that fails (transport error, no JSON in the reply,
// unparseable JSON) is logged and skipped; the run carries on with the next
// one and returns whatever was collected.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/i18n-genai/i18n-genai/config"
)

// ErrNoJSONObject is returned by ExtractJSONObject when the text holds no
// {...} span.
var ErrNoJSONObject = errors.New("no JSON object found in the response")

// DefaultDelay is the pause between two consecutive provider calls.
const DefaultDelay = 5 * time.Second

// Placeholders recognized in prompt templates.
const (
	PlaceholderLanguage = "{{targetLang}}"
	PlaceholderContent  = "{{content}}"
)

// DefaultPrompt is used when no custom prompt is configured.
const DefaultPrompt = `Please complete my translation file by adding the {{targetLang}} version of the keys in this JSON as values.
Return only the JSON response with no comments, no additional messages, nothing else but the requested JSON.

Here is my JSON:

{{content}}
`

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ---------------------------------------------------------------------------
// Chunking and prompts
// ---------------------------------------------------------------------------

// Chunk splits keys into consecutive groups of at most size keys. A size of
// zero or less yields a single chunk. No keys yields no chunks.
func Chunk(keys []string, size int) [][]string {
	if len(keys) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]string{keys}
	}
	return lo.Chunk(keys, size)
}

// BuildPrompt renders template for one chunk. The chunk is embedded as a
// compact JSON object mapping each key to "". An empty template selects
// DefaultPrompt; a template without the content placeholder gets the JSON
// appended.
func BuildPrompt(template string, chunk []string, language string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPrompt
	}
	if language == "" {
		language = "English"
	}

	content := emptyObject(chunk)
	if !strings.Contains(template, PlaceholderContent) {
		template = strings.TrimRight(template, "\n") + "\n\n" + PlaceholderContent + "\n"
	}
	return strings.NewReplacer(
		PlaceholderLanguage, language,
		PlaceholderContent, content,
	).Replace(template)
}

// emptyObject renders {"k1":"","k2":""} preserving key order.
func emptyObject(keys []string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)

	var out strings.Builder
	out.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			out.WriteByte(',')
		}
		b.Reset()
		if err := enc.Encode(k); err != nil {
			continue
		}
		out.WriteString(strings.TrimSuffix(b.String(), "\n"))
		out.WriteString(`:""`)
	}
	out.WriteByte('}')
	return out.String()
}

// ExtractJSONObject returns text from its first '{' to its last '}'.
func ExtractJSONObject(text string) (string, error) {
	begin := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if begin < 0 || end < 0 || end < begin {
		return "", ErrNoJSONObject
	}
	return text[begin : end+1], nil
}

// parseResponse extracts the JSON object from a provider reply and keeps the
// requested keys that came back with a non-empty string value.
func parseResponse(text string, requested []string) (map[string]string, error) {
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}

	out := make(map[string]string, len(requested))
	for _, k := range requested {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil || s == "" {
			continue
		}
		out[k] = s
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Translator
// ---------------------------------------------------------------------------

// Options controls a Translator.
type Options struct {
	// ChunkSize is the maximum number of keys per request (0 = all at once).
	ChunkSize int
	// Prompt overrides DefaultPrompt.
	Prompt string
	// Delay is the pause between requests (0 = DefaultDelay).
	Delay time.Duration
	// Sleep waits for the given duration (nil = time.Sleep).
	Sleep func(time.Duration)
	// OnProgress is called after every chunk, successful or not.
	OnProgress func(done, total int)
}

// Translator runs batch translations against one Generator.
type Translator struct {
	gen  Generator
	opts Options
	log  zerolog.Logger
}

// New returns a Translator using gen.
func New(gen Generator, opts Options, logger zerolog.Logger) *Translator {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	return &Translator{
		gen:  gen,
		opts: opts,
		log:  logger.With().Str("component", "translate").Logger(),
	}
}

// Result is the outcome of a Translate run.
type Result struct {
	// Translations holds every key that came back translated.
	Translations map[string]string
	Requested    int
	Chunks       int
	Failed       int
	// Err is set when the run stopped early because ctx was done.
	Err error
}

// Translate requests translations for keys into locale. It never fails as a
// whole: failed chunks are counted in Result.Failed and skipped.
func (t *Translator) Translate(ctx context.Context, keys []string, locale config.Locale) Result {
	chunks := Chunk(keys, t.opts.ChunkSize)
	res := Result{
		Translations: make(map[string]string),
		Requested:    len(keys),
		Chunks:       len(chunks),
	}
	log := t.log.With().Str("locale", locale.Code).Logger()

	log.Info().Int("keys", len(keys)).Int("chunks", len(chunks)).Int("chunk_size", t.opts.ChunkSize).Msg("processing keys")

	done := 0
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("remaining", len(chunks)-i).Msg("stopping before remaining chunks")
			res.Err = err
			break
		}

		clog := log.With().Int("chunk", i+1).Int("of", len(chunks)).Logger()
		clog.Info().Int("keys", len(chunk)).Msg("processing chunk")

		got, err := t.translateChunk(ctx, chunk, locale)
		if err != nil {
			res.Failed++
			clog.Warn().Err(err).Msg("chunk failed, skipping")
		} else {
			for k, v := range got {
				res.Translations[k] = v
			}
			clog.Info().Int("translations", len(got)).Msg("chunk processed")
		}

		done += len(chunk)
		if t.opts.OnProgress != nil {
			t.opts.OnProgress(done, len(keys))
		}

		if i < len(chunks)-1 {
			clog.Debug().Dur("delay", t.opts.Delay).Msg("pausing before next request")
			t.opts.Sleep(t.opts.Delay)
		}
	}

	return res
}

func (t *Translator) translateChunk(ctx context.Context, chunk []string, locale config.Locale) (map[string]string, error) {
	label := locale.Label
	if label == "" {
		label = locale.Code
	}
	prompt := BuildPrompt(t.opts.Prompt, chunk, label)

	text, err := t.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseResponse(text, chunk)
}
