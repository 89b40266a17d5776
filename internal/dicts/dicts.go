// Package dicts holds the reference-data seed and label helpers.
package dicts

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/greengliwice/trees-backend/internal/models"
)

//go:embed seed.yaml
var seedYAML []byte

// Namespace scopes the name-based ids of dictionary entries.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://greengliwice.pl/dicts"))

type seedFile struct {
	Species  []string `yaml:"species"`
	State    []string `yaml:"state"`
	BadState []string `yaml:"badState"`
}

// Normalize trims and NFC-normalizes a label so visually equal labels compare equal.
func Normalize(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}

// SameLabel reports whether two labels are equal after normalization.
func SameLabel(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// ID derives the stable id of the entry named name in dictionary t.
func ID(t models.DictType, name string) string {
	return uuid.NewSHA1(Namespace, []byte(string(t)+"/"+Normalize(name))).String()
}

// Seed parses the embedded seed into entries, dictionaries in models.DictTypes
// order and each in file order.
func Seed() ([]models.DictItem, error) {
	return Parse(seedYAML)
}

// Parse reads a seed document. Names must be unique within a dictionary.
func Parse(doc []byte) ([]models.DictItem, error) {
	var f seedFile
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("dicts: parse seed: %w", err)
	}

	lists := map[models.DictType][]string{
		models.DictSpecies:  f.Species,
		models.DictState:    f.State,
		models.DictBadState: f.BadState,
	}
	var items []models.DictItem
	for _, t := range models.DictTypes {
		seen := map[string]bool{}
		for i, name := range lists[t] {
			name = Normalize(name)
			if name == "" {
				return nil, fmt.Errorf("dicts: empty %s name at position %d", t, i)
			}
			if seen[name] {
				return nil, fmt.Errorf("dicts: duplicate %s name %q", t, name)
			}
			seen[name] = true
			items = append(items, models.DictItem{Type: t, ID: ID(t, name), Name: name, Position: i})
		}
	}
	return items, nil
}

// MustSeed is Seed for process start-up; the embedded seed is fixed at build time.
func MustSeed() []models.DictItem {
	items, err := Seed()
	if err != nil {
		panic(err)
	}
	return items
}
