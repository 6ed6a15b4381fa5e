// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFlattenYAML(t *testing.T) {
	keys := make(map[string]struct{})
	flattenYAML("", map[string]any{
		"app":   map[string]any{"title": "x", "nested": map[string]any{"deep": "y"}},
		"other": "v",
	}, keys)
	for _, want := range []string{"app.title", "app.nested.deep", "other"} {
		if _, ok := keys[want]; !ok {
			t.Errorf("missing %s in %v", want, keys)
		}
	}
}

func TestLint(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ui", "a.go"), `package ui
func f() {
	_ = i18n.T("app.title")
	_ = i18n.T("app.gone")
	outcome(nil, "notify.saved", "x")
	_ = i18n.T("field." + k)
}`)
	writeFile(t, filepath.Join(root, "ui", "a_test.go"), `package ui
var _ = i18n.T("app.only_in_tests")`)
	dir := filepath.Join(root, "locales")
	writeFile(t, filepath.Join(dir, "en.yaml"), `app:
  title: "T"
  unused: "U"
notify:
  saved: "S"
field:
  name: "Name"
`)
	writeFile(t, filepath.Join(dir, "de.yaml"), `app:
  title: "T"
  unused: "U"
field:
  name: "Name"
`)

	r, err := lint(root, dir)
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if !slices.Equal(r.undefined, []string{"app.gone"}) {
		t.Errorf("undefined = %v", r.undefined)
	}
	if !slices.Equal(r.missing["de.yaml"], []string{"notify.saved"}) {
		t.Errorf("missing = %v", r.missing)
	}
	if !slices.Equal(r.orphaned, []string{"app.unused"}) {
		t.Errorf("orphaned = %v", r.orphaned)
	}
	if !r.failed() {
		t.Errorf("expected failure")
	}

	var out bytes.Buffer
	r.print(&out)
	if !strings.Contains(out.String(), "Undefined: app.gone") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestLintShippedLocales(t *testing.T) {
	r, err := lint(filepath.Join("..", ".."), filepath.Join("..", "..", localesDir))
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if r.failed() {
		var out bytes.Buffer
		r.print(&out)
		t.Fatalf("locale files inconsistent:\n%s", out.String())
	}
}
