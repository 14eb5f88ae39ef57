// Package prompts holds the model prompt templates used when tailoring a
// profile. Templates live in embedded JSON files, one object of name -> text
// per file, and use {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
)

//go:embed *.json
var files embed.FS

// Tailoring is the prompt file for profile rewrites and match reports
const Tailoring = "tailoring.json"

var placeholder = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9]*)\}\}`)

// catalog parses every embedded file once
var catalog = sync.OnceValues(func() (map[string]map[string]string, error) {
	names, err := fs.Glob(files, "*.json")
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]string, len(names))
	for _, name := range names {
		raw, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}
		var templates map[string]string
		if err := json.Unmarshal(raw, &templates); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
		}
		out[name] = templates
	}
	return out, nil
})

// Get returns one template, e.g. Get(Tailoring, "system")
func Get(file, key string) (string, error) {
	all, err := catalog()
	if err != nil {
		return "", err
	}
	templates, ok := all[file]
	if !ok {
		return "", fmt.Errorf("prompt file %s not found", file)
	}
	template, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, file)
	}
	return template, nil
}

// Keys lists the templates of a file, sorted
func Keys(file string) ([]string, error) {
	all, err := catalog()
	if err != nil {
		return nil, err
	}
	templates, ok := all[file]
	if !ok {
		return nil, fmt.Errorf("prompt file %s not found", file)
	}
	return slices.Sorted(maps.Keys(templates)), nil
}

// Placeholders returns the distinct placeholder names of a template in order of first use
func Placeholders(template string) []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// Format replaces {{.Key}} placeholders with values from data. Substituted
// values are not scanned again, so a profile containing "{{.X}}" is left intact.
// Placeholders without a value are left as they are.
func Format(template string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for _, key := range slices.Sorted(maps.Keys(data)) {
		pairs = append(pairs, "{{."+key+"}}", data[key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Render loads a template and fills it. Every placeholder must have a value.
func Render(file, key string, data map[string]string) (string, error) {
	template, err := Get(file, key)
	if err != nil {
		return "", err
	}
	for _, name := range Placeholders(template) {
		if _, ok := data[name]; !ok {
			return "", fmt.Errorf("prompt %s/%s: no value for %s", file, key, name)
		}
	}
	return Format(template, data), nil
}
