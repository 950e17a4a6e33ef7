package stations

// Package stations holds the small, enumerable registry of broadcast
// stations and resolves human-entered names to station codes.

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ondes-hq/radio-catalog/internal/domain"
)

// Entry is one station as declared in the registry file.
type Entry struct {
	Code    string   `yaml:"code"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

type registryFile struct {
	Stations []Entry `yaml:"stations"`
}

// Registry resolves station names and codes. Immutable once loaded.
type Registry struct {
	entries []Entry
	byCode  map[string]Entry
	byName  map[string]Entry
}

// defaultEntries covers the broadcaster's national stations, used when no
// registry file is configured.
var defaultEntries = []Entry{
	{Code: "franceinter", Name: "France Inter", Aliases: []string{"inter"}},
	{Code: "franceculture", Name: "France Culture", Aliases: []string{"culture"}},
	{Code: "francemusique", Name: "France Musique", Aliases: []string{"musique"}},
	{Code: "franceinfo", Name: "franceinfo", Aliases: []string{"info", "france info"}},
	{Code: "fip", Name: "FIP", Aliases: nil},
	{Code: "mouv", Name: "Mouv'", Aliases: []string{"mouv", "le mouv"}},
}

// Load reads the registry from a YAML file. An empty path loads the
// built-in default set.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return build(defaultEntries)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode stations file: %w", err)
	}
	if len(file.Stations) == 0 {
		return nil, errors.New("stations file contains no stations entries")
	}
	return build(file.Stations)
}

// Default returns the built-in registry.
func Default() *Registry {
	reg, _ := build(defaultEntries)
	return reg
}

func build(entries []Entry) (*Registry, error) {
	reg := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byCode:  make(map[string]Entry, len(entries)),
		byName:  make(map[string]Entry, len(entries)*2),
	}

	for i, e := range entries {
		e.Code = strings.TrimSpace(e.Code)
		e.Name = strings.TrimSpace(e.Name)
		if e.Code == "" {
			return nil, fmt.Errorf("station[%d]: code is required", i)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("station[%d]: name is required for code %q", i, e.Code)
		}
		codeKey := normalize(e.Code)
		if _, exists := reg.byCode[codeKey]; exists {
			return nil, fmt.Errorf("duplicate station code %q", e.Code)
		}

		reg.entries = append(reg.entries, e)
		reg.byCode[codeKey] = e
		reg.byName[normalize(e.Name)] = e
		reg.byName[codeKey] = e
		for _, alias := range e.Aliases {
			if a := normalize(alias); a != "" {
				reg.byName[a] = e
			}
		}
	}
	return reg, nil
}

// All returns the stations in declaration order.
func (r *Registry) All() []domain.Station {
	out := make([]domain.Station, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, domain.Station{Code: e.Code, Name: e.Name})
	}
	return out
}

// ByCode looks up a station by its code.
func (r *Registry) ByCode(code string) (domain.Station, bool) {
	e, ok := r.byCode[normalize(code)]
	if !ok {
		return domain.Station{}, false
	}
	return domain.Station{Code: e.Code, Name: e.Name}, true
}

// ResolveName maps a human-entered station name (or alias, or code) to the
// station. Matching is case-insensitive and whitespace-tolerant.
func (r *Registry) ResolveName(name string) (domain.Station, bool) {
	key := normalize(name)
	if key == "" {
		return domain.Station{}, false
	}
	if e, ok := r.byName[key]; ok {
		return domain.Station{Code: e.Code, Name: e.Name}, true
	}
	// Second chance without spaces: "France  Inter" and "franceinter"
	// should both land on the same station.
	compact := strings.ReplaceAll(key, " ", "")
	if e, ok := r.byName[compact]; ok {
		return domain.Station{Code: e.Code, Name: e.Name}, true
	}
	for stored, e := range r.byName {
		if strings.ReplaceAll(stored, " ", "") == compact {
			return domain.Station{Code: e.Code, Name: e.Name}, true
		}
	}
	return domain.Station{}, false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
