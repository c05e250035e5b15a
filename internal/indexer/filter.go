package indexer

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidFilter reports a malformed glob pattern.
var ErrInvalidFilter = errors.New("invalid filter pattern")

// Filter decides which workspace-relative paths are indexable. Include
// patterns are tested first: when any are present, a path must match one.
// Exclude patterns then veto. Patterns use path.Match syntax against
// slash-separated paths; a "**/" prefix additionally matches the bare
// basename so "**/*.go" covers files at any depth.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter validates the patterns and builds a filter. Returns
// ErrInvalidFilter naming the first malformed pattern.
func NewFilter(include, exclude []string) (*Filter, error) {
	for _, pat := range append(append([]string{}, include...), exclude...) {
		if _, err := path.Match(strings.TrimPrefix(pat, "**/"), "sample"); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, pat)
		}
	}
	return &Filter{
		include: append([]string{}, include...),
		exclude: append([]string{}, exclude...),
	}, nil
}

// Match reports whether relPath passes the filter.
func (f *Filter) Match(relPath string) bool {
	if f == nil {
		return true
	}
	relPath = strings.TrimPrefix(relPath, "./")

	if len(f.include) > 0 {
		ok := false
		for _, pat := range f.include {
			if matchPattern(pat, relPath) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	for _, pat := range f.exclude {
		if matchPattern(pat, relPath) {
			return false
		}
	}
	return true
}

func matchPattern(pat, relPath string) bool {
	if rest, ok := strings.CutPrefix(pat, "**/"); ok {
		// Match the suffix at any directory depth, including the root.
		if matched, _ := path.Match(rest, path.Base(relPath)); matched {
			return true
		}
		for p := relPath; ; {
			i := strings.IndexByte(p, '/')
			if i < 0 {
				break
			}
			p = p[i+1:]
			if matched, _ := path.Match(rest, p); matched {
				return true
			}
		}
		matched, _ := path.Match(rest, relPath)
		return matched
	}

	// Directory prefix form: "vendor/" excludes the whole subtree.
	if strings.HasSuffix(pat, "/") {
		return strings.HasPrefix(relPath, pat)
	}

	matched, _ := path.Match(pat, relPath)
	return matched
}
