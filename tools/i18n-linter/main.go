// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks that every i18n.T key used in the Go sources exists in
// the primary locale, that every locale carries the same keys, and that the
// placeholders of each translation match the primary locale.
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

var (
	usedKeyRe     = regexp.MustCompile(`i18n\.T\("([^"]+)"`)
	placeholderRe = regexp.MustCompile(`%[-+# 0]*\d*(?:\.\d+)?[a-zA-Z]|\{\{\s*\.(\w+)\s*\}\}`)
)

// Report lists the problems found by lint.
type Report struct {
	Undefined    []string // used in code, absent from the primary locale
	Orphaned     []string // in the primary locale, never used
	Missing      map[string][]string
	Placeholders map[string][]string
}

// Failed reports whether the report contains errors. Orphaned keys are only
// warnings.
func (r Report) Failed() bool {
	return len(r.Undefined) > 0 || len(r.Missing) > 0 || len(r.Placeholders) > 0
}

func main() {
	r, err := lint(projectRoot, localesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "i18n-linter: %v\n", err)
		os.Exit(1)
	}
	r.write(os.Stdout)
	if r.Failed() {
		os.Exit(1)
	}
}

func lint(root, locales string) (Report, error) {
	r := Report{Missing: map[string][]string{}, Placeholders: map[string][]string{}}

	used, err := findUsedKeys(root)
	if err != nil {
		return r, fmt.Errorf("scan sources: %w", err)
	}
	primary, err := loadLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		return r, fmt.Errorf("load primary locale: %w", err)
	}

	for key := range used {
		if _, ok := primary[key]; !ok {
			r.Undefined = append(r.Undefined, key)
		}
	}
	for key := range primary {
		if _, ok := used[key]; !ok {
			r.Orphaned = append(r.Orphaned, key)
		}
	}
	sort.Strings(r.Undefined)
	sort.Strings(r.Orphaned)

	files, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		return r, err
	}
	for _, file := range files {
		name := filepath.Base(file)
		if name == primaryLocale {
			continue
		}
		other, err := loadLocale(file)
		if err != nil {
			return r, fmt.Errorf("load %s: %w", name, err)
		}
		for key, msg := range primary {
			translated, ok := other[key]
			if !ok {
				r.Missing[name] = append(r.Missing[name], key)
				continue
			}
			if placeholders(msg) != placeholders(translated) {
				r.Placeholders[name] = append(r.Placeholders[name], key)
			}
		}
		sort.Strings(r.Missing[name])
		sort.Strings(r.Placeholders[name])
		if len(r.Missing[name]) == 0 {
			delete(r.Missing, name)
		}
		if len(r.Placeholders[name]) == 0 {
			delete(r.Placeholders, name)
		}
	}
	return r, nil
}

func (r Report) write(w io.Writer) {
	section := func(title string, keys []string) {
		if len(keys) == 0 {
			return
		}
		fmt.Fprintf(w, "%s:\n", title)
		for _, k := range keys {
			fmt.Fprintf(w, "  - %s\n", k)
		}
	}
	section("Undefined keys", r.Undefined)
	section("Orphaned keys", r.Orphaned)
	for _, name := range sortedKeys(r.Missing) {
		section("Missing in "+name, r.Missing[name])
	}
	for _, name := range sortedKeys(r.Placeholders) {
		section("Placeholder mismatch in "+name, r.Placeholders[name])
	}
	if !r.Failed() && len(r.Orphaned) == 0 {
		fmt.Fprintln(w, "All translation files are consistent.")
	}
}

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// findUsedKeys scans the non-test .go files below root for i18n.T("key").
func findUsedKeys(root string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (d.Name() == "tools" || strings.HasPrefix(d.Name(), "_") || strings.HasPrefix(d.Name(), ".")) {
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
		for _, m := range usedKeyRe.FindAllStringSubmatch(string(content), -1) {
			keys[m[1]] = struct{}{}
		}
		return nil
	})
	return keys, err
}

// placeholders returns the sorted placeholder signature of msg.
func placeholders(msg string) string {
	found := placeholderRe.FindAllString(msg, -1)
	sort.Strings(found)
	return strings.Join(found, " ")
}

// loadLocale reads a locale file into a flat key -> message map.
func loadLocale(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flattenYAML("", data, out)
	return out, nil
}

// flattenYAML joins nested keys with dots. Dotted top-level keys stay as
// they are.
func flattenYAML(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenYAML(key, val, out)
		}
	default:
		if prefix != "" {
			out[prefix] = fmt.Sprint(v)
		}
	}
}
