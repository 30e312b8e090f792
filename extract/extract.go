// Package extract finds translation keys in a source tree.
//
// Keys are the first string-literal argument of t(...), $t(...) and
// i18n.t(...) calls. Matching is done by a small hand-written scanner
// rather than a regular expression, so escapes are decoded and template
// literals with interpolation are recognized and skipped.
package extract

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// skipDirs contains directory names never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	".next":        true,
	".nuxt":        true,
}

// Files yields every regular file under root whose name ends with one of
// exts. An empty exts matches every file.
//
// The walk is driven by an explicit stack and goes directory-then-file: the
// subdirectories of a directory are visited depth-first in name order, then
// its own files are yielded in name order. Symlinks are never followed. Each
// range over the returned sequence starts a fresh walk.
//
// Read errors are yielded with an empty path; the consumer decides whether
// to stop.
func Files(root string, exts []string) iter.Seq2[string, error] {
	suffixes := normalizeExts(exts)

	type item struct {
		path string
		dir  bool
	}

	return func(yield func(string, error) bool) {
		info, err := os.Lstat(root)
		if err != nil {
			yield("", fmt.Errorf("scanning %s: %w", root, err))
			return
		}
		if !info.IsDir() {
			if info.Mode().IsRegular() && matches(root, suffixes) {
				yield(root, nil)
			}
			return
		}

		stack := []item{{path: root, dir: true}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !top.dir {
				if !yield(top.path, nil) {
					return
				}
				continue
			}

			entries, err := os.ReadDir(top.path)
			if err != nil {
				if !yield("", fmt.Errorf("reading directory %s: %w", top.path, err)) {
					return
				}
				continue
			}

			var files, subdirs []item
			for _, e := range entries {
				p := filepath.Join(top.path, e.Name())
				switch {
				case e.Type()&fs.ModeSymlink != 0:
					continue
				case e.IsDir():
					if !skipDirs[e.Name()] {
						subdirs = append(subdirs, item{path: p, dir: true})
					}
				case e.Type().IsRegular():
					if matches(p, suffixes) {
						files = append(files, item{path: p})
					}
				}
			}

			// The stack pops last-in first: files go under the
			// subdirectories, and both are pushed in reverse name order.
			for i := len(files) - 1; i >= 0; i-- {
				stack = append(stack, files[i])
			}
			for i := len(subdirs) - 1; i >= 0; i-- {
				stack = append(stack, subdirs[i])
			}
		}
	}
}

func normalizeExts(exts []string) []string {
	var out []string
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func matches(path string, suffixes []string) bool {
	if len(suffixes) == 0 {
		return true
	}
	name := strings.ToLower(filepath.Base(path))
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Dir scans every matching file under root and returns the distinct keys in
// first-seen order. Any read error aborts the scan.
func Dir(root string, exts []string) ([]string, error) {
	keys, _, err := DirStats(root, exts)
	return keys, err
}

// DirStats is Dir that also reports how many files were scanned.
func DirStats(root string, exts []string) ([]string, int, error) {
	var all []string
	files := 0
	for path, err := range Files(root, exts) {
		if err != nil {
			return nil, files, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, files, fmt.Errorf("reading %s: %w", path, err)
		}
		files++
		all = append(all, Keys(string(data))...)
	}
	return lo.Uniq(all), files, nil
}
