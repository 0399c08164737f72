// Package watch spawns per-process filesystem watchers that request a
// restart when a relevant file changes, with debouncing and ignore-rule
// matching combining explicit globs with .gitignore semantics.
package watch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/monochromegane/go-gitignore"
)

// matcher combines an explicit glob set with optional .gitignore-derived
// rules, mirroring the two independent ignore sources a watch config can
// supply.
type matcher struct {
	base     string
	patterns []string // already expanded: literal dirs get a trailing /** variant
	ignores  []gitignore.IgnoreMatcher
}

func newMatcher(base string, patterns []string, useGitignore bool) *matcher {
	m := &matcher{base: base}
	for _, p := range patterns {
		m.patterns = append(m.patterns, expandPattern(p)...)
	}
	if useGitignore {
		m.ignores = loadGitignores(base)
	}
	return m
}

// expandPattern mirrors how a bare directory name like "target" should also
// ignore everything beneath it, while a pattern that already contains glob
// metacharacters is used as-is.
func expandPattern(pattern string) []string {
	trimmed := strings.TrimSuffix(pattern, "/")
	if strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}
	}
	return []string{trimmed, trimmed + "/**"}
}

func loadGitignores(base string) []gitignore.IgnoreMatcher {
	var matchers []gitignore.IgnoreMatcher
	dir := base
	for {
		for _, name := range []string{".gitignore", filepath.Join(".git", "info", "exclude")} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				if im, err := gitignore.NewGitIgnore(path); err == nil {
					matchers = append(matchers, im)
				}
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return matchers
}

// isIgnored reports whether path should be excluded from triggering a
// restart.
func (m *matcher) isIgnored(path string) bool {
	for _, pattern := range m.patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
		if rel, err := filepath.Rel(m.base, path); err == nil {
			rel = filepath.ToSlash(rel)
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return true
			}
		}
	}
	isDir := false
	if info, err := os.Stat(path); err == nil {
		isDir = info.IsDir()
	}
	for _, im := range m.ignores {
		if im.Match(path, isDir) {
			return true
		}
	}
	return false
}
