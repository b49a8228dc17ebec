package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Outcome reports what Configure did.
type Outcome int

const (
	Created Outcome = iota
	Updated
	AlreadyConfigured
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "already configured"
	}
}

// FileConfig manages <workspace>/.cursor/mcp.json.
type FileConfig struct {
	root string
}

// NewFileConfig returns a registrar for the workspace at root.
func NewFileConfig(root string) *FileConfig {
	return &FileConfig{root: root}
}

// Path returns the config file path.
func (f *FileConfig) Path() string {
	return filepath.Join(f.root, ".cursor", "mcp.json")
}

// Name implements Registrar.
func (f *FileConfig) Name() string { return "file" }

// entryKey is the mcpServers key for a server name.
func entryKey(name string) string { return strings.ToLower(name) }

// Configure adds mcpServers.<name> = {url}. An existing entry is left
// untouched, as are all other keys in the file.
func (f *FileConfig) Configure(name, url string) (Outcome, error) {
	doc, existed, err := f.read()
	if err != nil {
		return 0, err
	}

	servers, _ := doc["mcpServers"].(map[string]interface{})
	if servers == nil {
		servers = make(map[string]interface{})
	}
	if _, ok := servers[entryKey(name)]; ok {
		slog.Info("MCP server already configured in mcp.json, skipping changes", "path", f.Path())
		return AlreadyConfigured, nil
	}
	servers[entryKey(name)] = map[string]string{"url": url}
	doc["mcpServers"] = servers

	if err := f.write(doc); err != nil {
		return 0, err
	}
	if existed {
		return Updated, nil
	}
	return Created, nil
}

// Register implements Registrar.
func (f *FileConfig) Register(_ context.Context, name, url string) error {
	outcome, err := f.Configure(name, url)
	if err != nil {
		return err
	}
	slog.Info("mcp.json registration", "path", f.Path(), "outcome", outcome.String())
	return nil
}

// Unregister implements Registrar. A missing file or entry is not an error.
func (f *FileConfig) Unregister(_ context.Context, name string) error {
	doc, existed, err := f.read()
	if err != nil || !existed {
		return err
	}
	servers, _ := doc["mcpServers"].(map[string]interface{})
	if _, ok := servers[entryKey(name)]; !ok {
		return nil
	}
	delete(servers, entryKey(name))
	return f.write(doc)
}

func (f *FileConfig) read() (map[string]interface{}, bool, error) {
	data, err := os.ReadFile(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]interface{}{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("integration: read %s: %w", f.Path(), err)
	}
	doc := map[string]interface{}{}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, true, fmt.Errorf("integration: parse %s: %w", f.Path(), err)
		}
	}
	return doc, true, nil
}

func (f *FileConfig) write(doc map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(f.Path()), 0o755); err != nil {
		return fmt.Errorf("integration: create %s: %w", filepath.Dir(f.Path()), err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("integration: encode mcp.json: %w", err)
	}
	if err := os.WriteFile(f.Path(), data, 0o644); err != nil {
		return fmt.Errorf("integration: write %s: %w", f.Path(), err)
	}
	return nil
}
