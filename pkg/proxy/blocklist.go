package proxy

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Blocklist matches request paths against configured glob patterns. Matching
// requests are refused with 403 before admission; they are invisible to load
// accounting.
//
// Patterns follow shell glob syntax with no separator: '*' matches any run
// of characters including '/', '?' matches exactly one character. Matching
// is case-sensitive against the full request path.
type Blocklist struct {
	patterns []blockedPattern
}

type blockedPattern struct {
	raw     string
	matcher glob.Glob
}

// NewBlocklist compiles the configured patterns. An empty list blocks
// nothing.
func NewBlocklist(patterns []string) (*Blocklist, error) {
	b := &Blocklist{patterns: make([]blockedPattern, 0, len(patterns))}
	for _, raw := range patterns {
		if raw == "" {
			// Comma-separated env values can carry empty entries.
			continue
		}
		matcher, err := glob.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid blocked path pattern %q: %w", raw, err)
		}
		b.patterns = append(b.patterns, blockedPattern{raw: raw, matcher: matcher})
	}
	return b, nil
}

// Match returns the first pattern blocking path, if any.
func (b *Blocklist) Match(path string) (string, bool) {
	for _, p := range b.patterns {
		if p.matcher.Match(path) {
			return p.raw, true
		}
	}
	return "", false
}

// Size returns the number of compiled patterns.
func (b *Blocklist) Size() int {
	return len(b.patterns)
}
