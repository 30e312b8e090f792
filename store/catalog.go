package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	envelopeKey       = "translation"
	legacyEnvelopeKey = "translations"
)

// shape records how a locale file was laid out on disk.
type shape int

const (
	shapeBare           shape = iota // {"key": "value"}
	shapeEnvelope                    // {"translation": {...}}
	shapeLegacyEnvelope              // {"translations": {...}}
)

func (s shape) String() string {
	switch s {
	case shapeEnvelope:
		return "envelope"
	case shapeLegacyEnvelope:
		return "legacy envelope"
	default:
		return "bare"
	}
}

// catalog is a string map that remembers insertion order.
type catalog struct {
	keys   []string
	values map[string]string
}

func newCatalog() *catalog {
	return &catalog{values: make(map[string]string)}
}

func (c *catalog) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set stores value under key. New keys go to the end; existing keys keep
// their position.
func (c *catalog) Set(key, value string) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

func (c *catalog) Len() int { return len(c.keys) }

func (c *catalog) Keys() []string { return c.keys }

// field is one top-level member of a JSON object, kept verbatim.
type field struct {
	name string
	raw  json.RawMessage
}

// decodeObject splits a JSON object into its members in file order.
func decodeObject(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected {, got %v", t)
	}

	var fields []field
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		fields = append(fields, field{name: key, raw: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level object")
	}
	return fields, nil
}

// parseCatalog reads a flat JSON object of string values.
func parseCatalog(data []byte) (*catalog, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return catalogFromFields(fields)
}

func catalogFromFields(fields []field) (*catalog, error) {
	c := newCatalog()
	for _, f := range fields {
		var v string
		raw := bytes.TrimSpace(f.raw)
		if len(raw) == 0 || raw[0] != '"' {
			return nil, fmt.Errorf("expected string value for key %q", f.name)
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("expected string value for key %q", f.name)
		}
		c.Set(f.name, v)
	}
	return c, nil
}

// localeFile is a locale file normalized to one catalog. fields keeps every
// other top-level member so rewriting the file does not drop them; the
// envelope itself is the member whose raw is nil.
type localeFile struct {
	shape   shape
	entries *catalog
	fields  []field
}

func newLocaleFile() *localeFile {
	return &localeFile{
		shape:   shapeEnvelope,
		entries: newCatalog(),
		fields:  []field{{name: envelopeKey}},
	}
}

func parseLocaleFile(data []byte) (*localeFile, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	for _, env := range []struct {
		key   string
		shape shape
	}{
		{envelopeKey, shapeEnvelope},
		{legacyEnvelopeKey, shapeLegacyEnvelope},
	} {
		idx := indexOf(fields, env.key)
		if idx < 0 || !isObject(fields[idx].raw) {
			continue
		}

		entries, err := parseCatalog(fields[idx].raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", env.key, err)
		}

		kept := make([]field, 0, len(fields))
		for i, f := range fields {
			switch {
			case i == idx:
				kept = append(kept, field{name: envelopeKey})
			case f.name == env.key:
				// earlier duplicate, superseded
			case env.shape == shapeLegacyEnvelope && f.name == envelopeKey:
				// A non-object "translation" would collide with the
				// rewritten envelope.
			default:
				kept = append(kept, f)
			}
		}
		return &localeFile{shape: env.shape, entries: entries, fields: kept}, nil
	}

	entries, err := catalogFromFields(fields)
	if err != nil {
		return nil, err
	}
	return &localeFile{
		shape:   shapeBare,
		entries: entries,
		fields:  []field{{name: envelopeKey}},
	}, nil
}

func indexOf(fields []field, name string) int {
	idx := -1
	for i, f := range fields {
		if f.name == name {
			idx = i
		}
	}
	return idx
}

func isObject(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) > 0 && s[0] == '{'
}

// marshal renders the file in the envelope form.
func (f *localeFile) marshal() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("{\n")
	for i, fld := range f.fields {
		b.WriteString(indent)
		b.WriteString(quote(fld.name))
		b.WriteString(": ")
		if fld.raw == nil {
			writeCatalog(&b, f.entries, indent)
		} else if err := json.Indent(&b, fld.raw, indent, indent); err != nil {
			return nil, fmt.Errorf("field %q: %w", fld.name, err)
		}
		if i < len(f.fields)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
	return b.Bytes(), nil
}

const indent = "  "

// marshalCatalog renders c as a top-level JSON object.
func marshalCatalog(c *catalog) []byte {
	var b bytes.Buffer
	writeCatalog(&b, c, "")
	b.WriteByte('\n')
	return b.Bytes()
}

func writeCatalog(b *bytes.Buffer, c *catalog, prefix string) {
	if c.Len() == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{\n")
	for i, k := range c.keys {
		b.WriteString(prefix + indent)
		b.WriteString(quote(k))
		b.WriteString(": ")
		b.WriteString(quote(c.values[k]))
		if i < len(c.keys)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(prefix + "}")
}

// quote JSON-encodes s without HTML escaping.
func quote(s string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// orderNewKeys returns keys in registry order, followed by the keys the
// registry does not know in sorted order.
func orderNewKeys(keys []string, registry *catalog) []string {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	out := make([]string, 0, len(keys))
	for _, k := range registry.Keys() {
		if wanted[k] {
			out = append(out, k)
			delete(wanted, k)
		}
	}

	rest := make([]string, 0, len(wanted))
	for k := range wanted {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(out, rest...)
}
