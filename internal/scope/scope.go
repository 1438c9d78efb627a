// Package scope decides whether a file write during the build cycle stays
// inside the active module. The check is advisory: callers warn, they never
// block the write.
package scope

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"

	"github.com/papapumpkin/cdd/internal/project"
	"github.com/papapumpkin/cdd/internal/simpleyaml"
)

// SharedDirs are top-level directories any module may write to.
var SharedDirs = []string{"shared", "common", "lib", "utils", "helpers"}

// Rules is the write scope of one active module.
type Rules struct {
	Module string
	// Source is paths.source, never empty.
	Source     string
	Tests      string
	Migrations string
	// Shared extends SharedDirs with paths.shared.
	Shared []string
	// ContractSource is the contract's source_path.
	ContractSource string
	// Patterns are the contract's `scope` globs.
	Patterns []string
}

// RulesFor builds the scope of module from the project configuration and
// the module contract, which may be nil.
func RulesFor(module string, cfg project.Config, contract *simpleyaml.Map) Rules {
	source := normalize(cfg.Paths.Source)
	if source == "" {
		source = project.DefaultSourcePath
	}
	r := Rules{
		Module:     module,
		Source:     source,
		Tests:      normalize(cfg.Paths.Tests),
		Migrations: normalize(cfg.Paths.Migrations),
	}
	for _, s := range cfg.Paths.Shared {
		if s = normalize(s); s != "" {
			r.Shared = append(r.Shared, s)
		}
	}

	if sp, ok := contract.String("source_path"); ok {
		r.ContractSource = normalize(sp)
	}
	if v, ok := contract.Get("scope"); ok {
		switch t := v.(type) {
		case string:
			if t != "" {
				r.Patterns = append(r.Patterns, t)
			}
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok && s != "" {
					r.Patterns = append(r.Patterns, s)
				}
			}
		}
	}
	return r
}

// normalize converts a configured path to the forward-slash, relative,
// slash-trimmed form used for prefix checks.
func normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.Trim(p, "/")
}

// Relative returns filePath relative to dir with forward slashes. ok is
// false when the path escapes dir.
func Relative(filePath, dir string) (string, bool) {
	if filePath == "" {
		return "", false
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(dir, filePath)
	}
	rel, err := filepath.Rel(dir, filePath)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}

// Allows reports whether the project-relative path rel may be written while
// the module is active.
func (r Rules) Allows(rel string) bool {
	if strings.HasPrefix(rel, project.DirName+"/") {
		return true
	}
	if !strings.Contains(rel, "/") {
		return true
	}

	first, _, _ := strings.Cut(rel, "/")
	for _, d := range SharedDirs {
		if first == d {
			return true
		}
	}
	for _, d := range r.Shared {
		if under(rel, d) {
			return true
		}
	}

	if under(rel, r.Tests) || under(rel, r.Source+"/"+r.Module) ||
		under(rel, r.Migrations) || under(rel, r.ContractSource) {
		return true
	}
	return r.matchesPatterns(rel)
}

func under(rel, dir string) bool {
	if dir == "" {
		return false
	}
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}

func (r Rules) matchesPatterns(rel string) bool {
	if len(r.Patterns) == 0 {
		return false
	}
	pm, err := patternmatcher.New(r.Patterns)
	if err != nil {
		return false
	}
	ok, err := pm.MatchesOrParentMatches(filepath.FromSlash(rel))
	return err == nil && ok
}

// ModuleDir is the conventional directory of the module, for messages.
func (r Rules) ModuleDir() string {
	return r.Source + "/" + r.Module + "/"
}

// Warning is the advisory line printed for an out-of-scope write.
func (r Rules) Warning(rel string) string {
	return fmt.Sprintf("[CDD] Warning: Writing to %s but active module is %q (%s)", rel, r.Module, r.ModuleDir())
}
