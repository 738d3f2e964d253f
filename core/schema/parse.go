package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile parses a document definition from a YAML file.
func ParseFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read file %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// Parse parses a document definition from YAML bytes.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse yaml: %w", err)
	}

	if err := Validate(def); err != nil {
		return Definition{}, fmt.Errorf("validate document %q: %w", def.Name, err)
	}

	return def, nil
}

// ParseDir parses all definitions under dir, including subdirectories.
// Results are ordered by path.
func ParseDir(dir string) ([]Definition, error) {
	var defs []Definition

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			defs = append(defs, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		def, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// Validate checks a definition without building its schema.
func Validate(def Definition) error {
	var errs []string

	if def.Name == "" {
		errs = append(errs, "document name is required")
	} else if !isValidIdentifier(def.Name) {
		errs = append(errs, fmt.Sprintf("document name %q is not a valid identifier", def.Name))
	}

	for _, name := range sortedKeys(def.Schema) {
		if name == IDField {
			errs = append(errs, fmt.Sprintf("field name %q is reserved", IDField))
			continue
		}
		if err := checkField(name, def.Schema[name]); err != nil {
			errs = append(errs, err.Error())
		}
	}

	for _, name := range def.Enhance {
		if _, ok := LookupEnhancer(name); !ok {
			errs = append(errs, fmt.Sprintf("unknown enhancer %q (known: %s)", name, strings.Join(EnhancerNames(), ", ")))
		}
	}

	if def.Type.Exclude != "" {
		if _, err := regexp.Compile(def.Type.Exclude); err != nil {
			errs = append(errs, fmt.Sprintf("type exclude: %v", err))
		}
	}

	for category, resolvers := range map[string]map[string]string{
		"query":        def.Queries,
		"mutation":     def.Mutations,
		"subscription": def.Subscriptions,
	} {
		for _, name := range sortedKeys(resolvers) {
			if !isValidIdentifier(name) {
				errs = append(errs, fmt.Sprintf("%s name %q is not a valid identifier", category, name))
			}
			if resolvers[name] == "" {
				errs = append(errs, fmt.Sprintf("%s %q: resolver kind is required", category, name))
			}
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
