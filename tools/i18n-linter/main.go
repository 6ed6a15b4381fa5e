// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the locale files against the translation keys used in
// the Go sources. Keys used in code but missing from the primary locale, and
// keys of the primary locale missing from another locale, fail the run.
// Keys no code refers to are reported as orphaned.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

// dynamicPrefixes are key families built at runtime ("field."+name). Their
// members are never orphaned.
var dynamicPrefixes = []string{"field.", "validation."}

var keyCall = regexp.MustCompile(`i18n\.T\("([a-z_]+(?:\.[a-z_]+)+)"|"(notify\.[a-z_]+|app\.[a-z_]+|cli\.[a-z_]+)"`)

type report struct {
	used      int
	undefined []string            // used in code, absent from the primary locale
	missing   map[string][]string // locale file -> keys absent from it
	orphaned  []string
}

func (r report) failed() bool {
	return len(r.undefined) > 0 || len(r.missing) > 0
}

func main() {
	r, err := lint(projectRoot, localesDir)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	r.print(os.Stdout)
	if r.failed() {
		os.Exit(1)
	}
}

func lint(root, dir string) (report, error) {
	used, err := findUsedKeys(root)
	if err != nil {
		return report{}, fmt.Errorf("scanning sources: %w", err)
	}
	primary, err := loadKeysFromLocale(filepath.Join(dir, primaryLocale))
	if err != nil {
		return report{}, fmt.Errorf("loading primary locale %s: %w", primaryLocale, err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return report{}, err
	}

	r := report{used: len(used), missing: map[string][]string{}}
	for key := range used {
		if _, ok := primary[key]; !ok {
			r.undefined = append(r.undefined, key)
		}
	}
	for key := range primary {
		if _, ok := used[key]; !ok && !isDynamic(key) {
			r.orphaned = append(r.orphaned, key)
		}
	}
	for _, file := range files {
		if filepath.Base(file) == primaryLocale {
			continue
		}
		keys, err := loadKeysFromLocale(file)
		if err != nil {
			return report{}, fmt.Errorf("loading %s: %w", file, err)
		}
		for key := range primary {
			if _, ok := keys[key]; !ok {
				r.missing[filepath.Base(file)] = append(r.missing[filepath.Base(file)], key)
			}
		}
	}

	sort.Strings(r.undefined)
	sort.Strings(r.orphaned)
	for f := range r.missing {
		sort.Strings(r.missing[f])
	}
	return r, nil
}

func (r report) print(w io.Writer) {
	fmt.Fprintf(w, "🔍 %d translation keys used in source code\n\n", r.used)

	fmt.Fprintln(w, "--- Used but undefined ---")
	list(w, "Undefined", r.undefined)

	fmt.Fprintln(w, "--- Missing from other locales ---")
	files := make([]string, 0, len(r.missing))
	for f := range r.missing {
		files = append(files, f)
	}
	sort.Strings(files)
	if len(files) == 0 {
		fmt.Fprintln(w, "  ✨ None found.")
	}
	for _, f := range files {
		fmt.Fprintf(w, "%s:\n", f)
		list(w, "Missing", r.missing[f])
	}

	fmt.Fprintln(w, "--- Orphaned ---")
	list(w, "Orphaned", r.orphaned)

	switch {
	case r.failed():
		fmt.Fprintln(w, "❌ Found issues that need to be addressed.")
	case len(r.orphaned) > 0:
		fmt.Fprintln(w, "⚠️  Found orphaned keys. Please consider removing them.")
	default:
		fmt.Fprintln(w, "✅ All translation files are consistent!")
	}
}

func list(w io.Writer, label string, keys []string) {
	if len(keys) == 0 {
		fmt.Fprintln(w, "  ✨ None found.")
		return
	}
	for _, k := range keys {
		fmt.Fprintf(w, "  - %s: %s\n", label, k)
	}
}

func isDynamic(key string) bool {
	for _, p := range dynamicPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// findUsedKeys collects literal keys from non-test Go files below root.
func findUsedKeys(root string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name == "tools" || (name != "." && strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range keyCall.FindAllStringSubmatch(string(content), -1) {
			switch {
			case m[1] != "":
				keys[m[1]] = struct{}{}
			case m[2] != "":
				keys[m[2]] = struct{}{}
			}
		}
		return nil
	})
	return keys, err
}

// loadKeysFromLocale reads a YAML file and returns a flat map of its keys.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML converts a nested map into dot-separated keys.
func flattenYAML(prefix string, node any, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
