package resource

import (
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/linggen/linggen-editor/internal/backend"
)

// Filter evaluates a resource's include/exclude patterns with gitignore
// semantics. It only feeds diagnostics ("why is my file not in the graph");
// the backend remains the authority on what gets indexed.
type Filter struct {
	include *ignore.GitIgnore
	exclude *ignore.GitIgnore
}

// NewFilter compiles r's patterns. Empty lists match nothing.
func NewFilter(r *backend.Resource) *Filter {
	f := &Filter{}
	if r == nil {
		return f
	}
	if len(r.IncludePatterns) > 0 {
		f.include = ignore.CompileIgnoreLines(r.IncludePatterns...)
	}
	if len(r.ExcludePatterns) > 0 {
		f.exclude = ignore.CompileIgnoreLines(r.ExcludePatterns...)
	}
	return f
}

// Excluded reports whether relPath would be skipped by the indexer: it
// matches an exclude pattern, or include patterns exist and none match.
func (f *Filter) Excluded(relPath string) bool {
	if f.exclude != nil && f.exclude.MatchesPath(relPath) {
		return true
	}
	if f.include != nil && !f.include.MatchesPath(relPath) {
		return true
	}
	return false
}
