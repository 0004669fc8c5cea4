// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package curated serves hand-authored answers for common questions. A
// query is matched to the closest paraphrase question by embedding
// similarity; close enough matches return the owning entry verbatim.
package curated

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is the set of curated entries loaded at startup.
type Catalog struct {
	Entries []types.CuratedEntry `json:"entries" yaml:"entries"`
}

// LoadCatalog reads and validates a YAML catalog file. An empty path
// selects the built-in catalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	cat, err := ParseCatalog(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog decodes and validates YAML catalog data.
func ParseCatalog(data []byte) (Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parsing catalog: %w", err)
	}
	for i := range cat.Entries {
		e := &cat.Entries[i]
		e.ID = strings.TrimSpace(e.ID)
		qs := e.Questions[:0]
		for _, q := range e.Questions {
			if q = strings.TrimSpace(q); q != "" {
				qs = append(qs, q)
			}
		}
		e.Questions = qs
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// Validate checks that ids are unique and every entry has at least one
// question and a non-empty answer.
func (c Catalog) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Entries))
	for i, e := range c.Entries {
		switch {
		case e.ID == "":
			errs = append(errs, fmt.Errorf("entry %d: missing id", i))
		case seen[e.ID]:
			errs = append(errs, fmt.Errorf("entry %d: duplicate id %q", i, e.ID))
		}
		seen[e.ID] = true
		if len(e.Questions) == 0 {
			errs = append(errs, fmt.Errorf("entry %q: no questions", e.ID))
		}
		if strings.TrimSpace(e.Answer) == "" {
			errs = append(errs, fmt.Errorf("entry %q: empty answer", e.ID))
		}
	}
	return errors.Join(errs...)
}

// Sorted returns the entries ordered by id.
func (c Catalog) Sorted() []types.CuratedEntry {
	out := append([]types.CuratedEntry(nil), c.Entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
