package render

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// ErrUnknownTemplate is returned when a template key is undefined.
var ErrUnknownTemplate = errors.New("template not defined")

// TemplateStore renders notification text from a YAML template file.
// Keys are "<display>.<part>", e.g. "node_register_event.title".
type TemplateStore struct {
	templates map[string]*template.Template
}

// LoadTemplates parses the template file. A missing or malformed file
// is fatal at startup.
func LoadTemplates(path string) (*TemplateStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	var entries map[string]map[string]string
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	store := &TemplateStore{templates: map[string]*template.Template{}}
	for display, parts := range entries {
		for part, text := range parts {
			key := display + "." + part
			t, err := template.New(key).Option("missingkey=zero").Parse(text)
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", key, err)
			}
			store.templates[key] = t
		}
	}
	return store, nil
}

// Render fills the named template with the given substitution values.
func (s *TemplateStore) Render(key string, args map[string]string) (string, error) {
	t, ok := s.templates[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrUnknownTemplate)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, args); err != nil {
		return "", fmt.Errorf("render template %s: %w", key, err)
	}
	return buf.String(), nil
}

// Keys lists the defined template keys, for the validate command.
func (s *TemplateStore) Keys() []string {
	keys := make([]string, 0, len(s.templates))
	for k := range s.templates {
		keys = append(keys, k)
	}
	return keys
}
