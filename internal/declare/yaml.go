package declare

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"
)

// declarationFile is the on-disk shape of one *.yaml declaration file,
// parsed with sigs.k8s.io/yaml the way the teacher's test suite parses
// its YAML fixtures: YAML converted to JSON and unmarshaled through
// ordinary json tags.
type declarationFile struct {
	Privileges  []PrivilegeDecl  `json:"privileges"`
	Roles       []RoleDecl       `json:"roles"`
	Collections []CollectionDecl `json:"collections"`
	Rules       []RuleDecl       `json:"rules"`
}

// YAMLSource is a Source backed by a directory of *.yaml / *.yml files,
// each optionally contributing to any of the four declaration lists.
// Files are read and concatenated in lexical filename order so a
// declaration set split across files has a stable, reproducible merge.
type YAMLSource struct {
	privileges  []PrivilegeDecl
	roles       []RoleDecl
	collections []CollectionDecl
	rules       []RuleDecl
}

// LoadYAMLDir reads every *.yaml and *.yml file directly under dir (not
// recursively) and merges their declarations into a YAMLSource.
func LoadYAMLDir(dir string) (*YAMLSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading declarations directory %q: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)

	src := &YAMLSource{}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading declaration file %q: %w", p, err)
		}
		var df declarationFile
		if err := yaml.Unmarshal(b, &df); err != nil {
			return nil, fmt.Errorf("parsing declaration file %q: %w", p, err)
		}
		src.privileges = append(src.privileges, df.Privileges...)
		src.roles = append(src.roles, df.Roles...)
		src.collections = append(src.collections, df.Collections...)
		src.rules = append(src.rules, df.Rules...)
	}
	return src, nil
}

// Privileges implements Source.
func (s *YAMLSource) Privileges() iter.Seq[PrivilegeDecl] {
	return func(yield func(PrivilegeDecl) bool) {
		for _, p := range s.privileges {
			if !yield(p) {
				return
			}
		}
	}
}

// Roles implements Source.
func (s *YAMLSource) Roles() iter.Seq[RoleDecl] {
	return func(yield func(RoleDecl) bool) {
		for _, r := range s.roles {
			if !yield(r) {
				return
			}
		}
	}
}

// Collections implements Source.
func (s *YAMLSource) Collections() iter.Seq[CollectionDecl] {
	return func(yield func(CollectionDecl) bool) {
		for _, c := range s.collections {
			if !yield(c) {
				return
			}
		}
	}
}

// Rules implements Source.
func (s *YAMLSource) Rules() iter.Seq[RuleDecl] {
	return func(yield func(RuleDecl) bool) {
		for _, r := range s.rules {
			if !yield(r) {
				return
			}
		}
	}
}

var _ Source = (*YAMLSource)(nil)
