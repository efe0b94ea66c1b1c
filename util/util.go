package util

import (
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Data is a generic map type for template rendering context.
type Data map[string]interface{}

// FuncMap holds the helpers available to every template rendered here.
var FuncMap = template.FuncMap{
	"upper":   strings.ToUpper,
	"lower":   strings.ToLower,
	"trim":    strings.TrimSpace,
	"join":    func(sep string, elems []string) string { return strings.Join(elems, sep) },
	"env":     os.Getenv,
	"default": defaultValue,
	"quote":   func(s string) string { return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'" },
}

func defaultValue(def string, v interface{}) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	if v != nil {
		if s, ok := v.(interface{ String() string }); ok {
			return s.String()
		}
	}
	return def
}

// Parse parses a named template with FuncMap. Missing keys are errors.
func Parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(FuncMap).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse template %s", name)
	}
	return tmpl, nil
}

// Render executes the given template with the provided variables.
func Render(tmpl *template.Template, variables Data) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, variables); err != nil {
		return "", errors.Wrap(err, "failed to render template")
	}
	return buf.String(), nil
}

// RenderString parses and executes the given template string with the provided variables.
func RenderString(tmplStr string, variables Data) (string, error) {
	tmpl, err := Parse("", tmplStr)
	if err != nil {
		return "", err
	}
	return Render(tmpl, variables)
}

// RenderFile renders the template stored at path.
func RenderFile(path string, variables Data) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read template %s", path)
	}
	tmpl, err := Parse(path, string(content))
	if err != nil {
		return "", err
	}
	return Render(tmpl, variables)
}

// GetenvOrDefault retrieves the value of the environment variable named by the key.
// If the variable is not present or empty, it returns the defaultValue.
func GetenvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// FirstNonEmpty returns the first non-empty string.
func FirstNonEmpty(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}
	return ""
}

// TruncateString shortens s to at most maxLength runes, the ellipsis
// included.
func TruncateString(s string, maxLength int, ellipsis string) string {
	if maxLength < 0 {
		maxLength = 0
	}
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	e := []rune(ellipsis)
	if maxLength <= len(e) {
		return string(e[:maxLength])
	}
	return string([]rune(s)[:maxLength-len(e)]) + ellipsis
}

// UniqueStrings returns slice without duplicates, keeping first occurrences in order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]struct{}, len(slice))
	out := make([]string, 0, len(slice))
	for _, s := range slice {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
