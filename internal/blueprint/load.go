package blueprint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Load reads and validates a single blueprint YAML file.
func Load(path string) (Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Blueprint{}, fmt.Errorf("read blueprint: %w", err)
	}
	return ParseAndValidate(data, filepath.Base(path))
}

// Set is a collection of blueprints indexed by paper name.
type Set struct {
	Blueprints []Blueprint
}

// LoadFromDir loads every .yaml/.yml file in dir. Validation problems
// across files are aggregated so one bad file does not hide another.
func LoadFromDir(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read blueprints dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	set := &Set{}
	var errs ValidationErrors
	for _, name := range names {
		bp, err := Load(filepath.Join(dir, name))
		if err != nil {
			if ve, ok := err.(ValidationErrors); ok {
				errs = append(errs, ve...)
				continue
			}
			return nil, err
		}
		set.Blueprints = append(set.Blueprints, bp)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return set, nil
}

// Find returns the blueprint with the given paper name.
func (s *Set) Find(paperName string) (Blueprint, bool) {
	for _, bp := range s.Blueprints {
		if bp.PaperName == paperName {
			return bp, true
		}
	}
	return Blueprint{}, false
}
