package filter

import "strings"

// Filter accepts lines containing at least one of its patterns. A Filter
// without patterns accepts every non-blank line.
type Filter struct {
	patterns []string
}

func New(patterns []string) *Filter {
	p := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if pattern != "" {
			p = append(p, pattern)
		}
	}
	return &Filter{patterns: p}
}

func (f *Filter) Accept(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if len(f.patterns) == 0 {
		return true
	}
	for _, pattern := range f.patterns {
		if strings.Contains(line, pattern) {
			return true
		}
	}
	return false
}
