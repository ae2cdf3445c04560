package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is read from the scan root, if present, for extra patterns.
const IgnoreFileName = ".dpignore"

type ignoreRule struct {
	glob     string
	anchored bool // glob applies to the slash path below the root, not the base name
	dirOnly  bool
	negate   bool
}

// IgnoreMatcher decides which entries a scan leaves out, using a subset of
// gitignore syntax:
//
//	*.log          base name glob, at any depth
//	build/*.o      path glob relative to the scan root
//	node_modules/  trailing '/' matches directories only
//	!keep.log      re-includes what an earlier rule excluded
//
// The last matching rule wins. An ignored directory is skipped together
// with everything below it, so a negation cannot reach inside it.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw pattern lines. Blank lines, comments and
// malformed globs are dropped.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range lines {
		if r, ok := parseIgnoreRule(line); ok {
			m.rules = append(m.rules, r)
		}
	}
	return m
}

func parseIgnoreRule(line string) (ignoreRule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return ignoreRule{}, false
	}

	var r ignoreRule
	if line[0] == '!' {
		r.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	r.anchored = strings.Contains(line, "/")
	r.glob = strings.TrimPrefix(line, "/")

	if r.glob == "" {
		return ignoreRule{}, false
	}
	if _, err := path.Match(r.glob, ""); err != nil {
		return ignoreRule{}, false
	}
	return r, true
}

// Len returns the number of usable rules.
func (m *IgnoreMatcher) Len() int {
	return len(m.rules)
}

// Match reports whether the entry at rel, a path relative to the scan root
// in OS form, is ignored.
func (m *IgnoreMatcher) Match(rel string, isDir bool) bool {
	if rel == "" || rel == "." {
		return false
	}

	slashed := filepath.ToSlash(rel)
	base := path.Base(slashed)

	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		target := base
		if r.anchored {
			target = slashed
		}
		if ok, _ := path.Match(r.glob, target); ok {
			ignored = !r.negate
		}
	}
	return ignored
}

// ParseIgnoreFile returns the raw lines of an ignore file, or nil if it does
// not exist.
func ParseIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", name, err)
	}
	return lines, nil
}
