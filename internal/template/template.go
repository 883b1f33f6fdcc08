// Package template loads note templates from YAML files.
package template

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

// ErrInvalidTemplate marks a template file that parsed but cannot be used.
var ErrInvalidTemplate = errors.New("invalid template")

// Template is a note template: an ordered list of sections.
type Template struct {
	ID       string              `yaml:"id" json:"id"`
	Name     string              `yaml:"name" json:"name"`
	Sections []notes.SectionInfo `yaml:"sections" json:"sections"`
}

// Load reads and validates a template file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML template. Sections without an order take their position
// (1-based); the result is sorted by display order.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if len(t.Sections) == 0 {
		return nil, fmt.Errorf("%w: no sections", ErrInvalidTemplate)
	}

	seen := make(map[string]bool, len(t.Sections))
	for i := range t.Sections {
		s := &t.Sections[i]
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, fmt.Errorf("%w: section %d has no id", ErrInvalidTemplate, i+1)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: duplicate section id %q", ErrInvalidTemplate, s.ID)
		}
		seen[s.ID] = true
		if s.Name == "" {
			s.Name = s.ID
		}
		if s.DisplayOrder == 0 {
			s.DisplayOrder = i + 1
		}
	}

	sort.SliceStable(t.Sections, func(i, j int) bool {
		return t.Sections[i].DisplayOrder < t.Sections[j].DisplayOrder
	})
	return &t, nil
}
