// Package templates holds the bot's reply texts. Defaults are embedded;
// an optional YAML file overrides individual keys per language so copy can
// change without a redeploy.
package templates

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultLang is used when a caller's language has no translation.
const DefaultLang = "en"

//go:embed defaults.yaml
var defaultsYAML []byte

// Store resolves reply texts by key and language.
type Store struct {
	texts map[string]map[string]string
}

// New loads the embedded defaults and, if overridePath is non-empty, merges
// per-key overrides from that YAML file on top.
func New(overridePath string) (*Store, error) {
	texts := map[string]map[string]string{}
	if err := yaml.Unmarshal(defaultsYAML, &texts); err != nil {
		return nil, fmt.Errorf("templates: embedded defaults: %w", err)
	}
	if overridePath != "" {
		b, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("templates: read %s: %w", overridePath, err)
		}
		var overrides map[string]map[string]string
		if err := yaml.Unmarshal(b, &overrides); err != nil {
			return nil, fmt.Errorf("templates: parse %s: %w", overridePath, err)
		}
		for key, langs := range overrides {
			if texts[key] == nil {
				texts[key] = map[string]string{}
			}
			for lang, text := range langs {
				texts[key][lang] = text
			}
		}
	}
	return &Store{texts: texts}, nil
}

// MustNew is New for wiring paths where a broken template set should stop
// the process.
func MustNew(overridePath string) *Store {
	s, err := New(overridePath)
	if err != nil {
		panic(err)
	}
	return s
}

// Text returns the translation for key in lang, falling back to the default
// language and finally to the key itself so a missing entry stays visible.
func (s *Store) Text(key, lang string) string {
	langs, ok := s.texts[key]
	if !ok {
		slog.Warn("missing reply template", slog.String("key", key))
		return key
	}
	if text, ok := langs[lang]; ok {
		return text
	}
	if text, ok := langs[DefaultLang]; ok {
		return text
	}
	slog.Warn("missing reply template", slog.String("key", key), slog.String("lang", lang))
	return key
}

// Textf formats the resolved text with fmt verbs.
func (s *Store) Textf(key, lang string, args ...any) string {
	return fmt.Sprintf(s.Text(key, lang), args...)
}

// Keys lists the known template keys, for the admin surface.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.texts))
	for k := range s.texts {
		keys = append(keys, k)
	}
	return keys
}
