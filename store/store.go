// Package store reads and writes the key registry and the per-locale
// translation files, and computes which registered keys a locale is missing.
//
// All files are JSON objects in the locale folder:
//
//	<localeFolder>/<storageFile>.json   registry, key -> ""
//	<localeFolder>/<code>.json          {"translation": {key -> value}}
//
// Locale files written by older releases, either a bare key -> value object
// or a {"translations": {...}} envelope, are read transparently and
// rewritten in the envelope form on the next merge.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/i18n-genai/i18n-genai/config"
)

// Store gives access to the registry and the locale files of one project.
type Store struct {
	dir         string
	storageName string
	log         zerolog.Logger
}

// New returns a Store rooted at cfg's locale folder.
func New(cfg *config.Config, logger zerolog.Logger) *Store {
	return &Store{
		dir:         cfg.LocaleDir(),
		storageName: cfg.StorageTranslationsFile,
		log:         logger.With().Str("component", "store").Logger(),
	}
}

// RegistryPath returns the path of the key registry file.
func (s *Store) RegistryPath() string {
	return filepath.Join(s.dir, s.storageName+".json")
}

// LocalePath returns the path of the translation file for code.
func (s *Store) LocalePath(code string) string {
	return filepath.Join(s.dir, code+".json")
}

// Diff describes how far a locale is from covering the registry.
type Diff struct {
	Locale           string
	UntranslatedKeys []string
	TranslatedCount  int
	TotalCount       int
	// Percentage is TranslatedCount/TotalCount*100 rounded to the nearest
	// integer, or 0 for an empty registry.
	Percentage int
}

// Keys returns the registered keys in registry order.
func (s *Store) Keys() ([]string, error) {
	reg, err := s.loadRegistry(false)
	if err != nil {
		return nil, err
	}
	return reg.Keys(), nil
}

// Register adds every key not yet in the registry and writes it back.
// It returns the number of keys added. Registering the same keys twice is
// a no-op the second time.
func (s *Store) Register(keys []string) (int, error) {
	reg, err := s.loadRegistry(true)
	if err != nil {
		return 0, err
	}

	before := reg.Len()
	for _, k := range keys {
		if _, ok := reg.Get(k); !ok {
			reg.Set(k, "")
		}
	}
	added := reg.Len() - before

	if err := writeFile(s.RegistryPath(), marshalCatalog(reg)); err != nil {
		return 0, err
	}
	s.log.Debug().Str("path", s.RegistryPath()).Int("added", added).Int("total", reg.Len()).Msg("registry written")
	return added, nil
}

// Diff compares the registry with the locale file for code. It never writes.
func (s *Store) Diff(code string) (Diff, error) {
	reg, err := s.loadRegistry(false)
	if err != nil {
		return Diff{}, err
	}
	lf, err := s.loadLocale(code, false)
	if err != nil {
		return Diff{}, err
	}

	d := Diff{Locale: code, TotalCount: reg.Len()}
	for _, k := range reg.Keys() {
		if v, _ := lf.entries.Get(k); v != "" {
			d.TranslatedCount++
		} else {
			d.UntranslatedKeys = append(d.UntranslatedKeys, k)
		}
	}
	d.Percentage = percentage(d.TranslatedCount, d.TotalCount)
	return d, nil
}

func percentage(translated, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(translated) / float64(total) * 100))
}

// Merge writes translations into the locale file for code. Every key of
// translations is set to its value, an empty one included, and every other
// key keeps its value. Keys already present keep their position. New keys
// are appended in registry order, then keys unknown to the registry in
// sorted order.
func (s *Store) Merge(code string, translations map[string]string) error {
	reg, err := s.loadRegistry(false)
	if err != nil {
		return err
	}
	lf, err := s.loadLocale(code, true)
	if err != nil {
		return err
	}

	var fresh []string
	updated := 0
	for k, v := range translations {
		if _, ok := lf.entries.Get(k); ok {
			lf.entries.Set(k, v)
			updated++
			continue
		}
		fresh = append(fresh, k)
	}
	for _, k := range orderNewKeys(fresh, reg) {
		lf.entries.Set(k, translations[k])
	}

	data, err := lf.marshal()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.LocalePath(code), err)
	}
	if err := writeFile(s.LocalePath(code), data); err != nil {
		return err
	}

	s.log.Debug().
		Str("locale", code).
		Str("path", s.LocalePath(code)).
		Int("added", len(fresh)).
		Int("updated", updated).
		Msg("locale file written")
	return nil
}

// Translations returns a copy of the stored translations for code.
func (s *Store) Translations(code string) (map[string]string, error) {
	lf, err := s.loadLocale(code, false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, lf.entries.Len())
	for _, k := range lf.entries.Keys() {
		out[k], _ = lf.entries.Get(k)
	}
	return out, nil
}

// loadRegistry reads the registry. A missing file is an empty registry. An
// unparseable one is reported and treated as empty; when rewrite is set the
// original bytes are first saved next to it with a .bak suffix.
func (s *Store) loadRegistry(rewrite bool) (*catalog, error) {
	path := s.RegistryPath()
	data, err := readFile(path)
	if err != nil || data == nil {
		return newCatalog(), err
	}

	reg, err := parseCatalog(data)
	if err != nil {
		return newCatalog(), s.corrupt(path, data, err, rewrite)
	}
	return reg, nil
}

func (s *Store) loadLocale(code string, rewrite bool) (*localeFile, error) {
	path := s.LocalePath(code)
	data, err := readFile(path)
	if err != nil || data == nil {
		return newLocaleFile(), err
	}

	lf, err := parseLocaleFile(data)
	if err != nil {
		return newLocaleFile(), s.corrupt(path, data, err, rewrite)
	}
	if lf.shape != shapeEnvelope {
		s.log.Debug().Str("locale", code).Stringer("shape", lf.shape).Msg("locale file will be rewritten as envelope")
	}
	return lf, nil
}

func (s *Store) corrupt(path string, data []byte, parseErr error, rewrite bool) error {
	if !rewrite {
		s.log.Warn().Err(parseErr).Str("path", path).Msg("cannot parse file, treating it as empty")
		return nil
	}

	backup := path + ".bak"
	if err := os.WriteFile(backup, data, 0644); err != nil {
		return fmt.Errorf("backing up unparseable %s: %w", path, err)
	}
	s.log.Warn().Err(parseErr).Str("path", path).Str("backup", backup).Msg("cannot parse file, treating it as empty")
	return nil
}

// readFile returns nil data and no error for a missing file.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
