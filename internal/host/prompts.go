package host

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// PromptsFile is the workspace's frequently used prompts, relative to the
// workspace root.
const PromptsFile = ".linggen/prompts.md"

const defaultPrompts = `# Frequent prompts

Prompts you reuse with your assistant. Linggen MCP gives it memory of your
indexed projects.

## Explain across projects

Call Linggen MCP first and list its tools. Find how this code relates to
the other indexed projects and explain the relationship.

## Review against conventions

Use Linggen MCP to look up how similar code is written in the indexed
projects. Point out where this change departs from those conventions.

## Pin a decision

Summarize the decision we just made in three lines and pin it to Linggen
memory with the file and line range it applies to.
`

// EnsurePrompts creates the prompts file with defaults when it does not
// exist and returns its path. An existing file is never modified.
func EnsurePrompts(root string) (path string, created bool, err error) {
	path = filepath.Join(root, filepath.FromSlash(PromptsFile))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("host: create prompts dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("host: stat prompts: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultPrompts), 0o644); err != nil {
		return "", false, fmt.Errorf("host: write prompts: %w", err)
	}
	return path, true, nil
}
