// Package integration registers the Linggen MCP server with the editor,
// either through a native host capability or by editing the workspace's
// .cursor/mcp.json.
package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ServerName is the name the MCP server is registered under.
const ServerName = "Linggen"

// MCPURL returns the MCP SSE endpoint of a backend.
func MCPURL(httpURL string) string {
	return strings.TrimRight(httpURL, "/") + "/mcp/sse"
}

// Registrar registers and unregisters MCP servers with the editor.
type Registrar interface {
	Name() string
	Register(ctx context.Context, name, url string) error
	Unregister(ctx context.Context, name string) error
}

// ---------------------------------------------------------------------------
// Native
// ---------------------------------------------------------------------------

// NativeHost is the editor's own MCP registration API, when it has one.
type NativeHost interface {
	RegisterServer(name, url string) error
	UnregisterServer(name string) error
}

// ErrNoNativeHost is returned by a Native registrar without a host.
var ErrNoNativeHost = errors.New("integration: no native MCP host")

// Native registers through a NativeHost.
type Native struct {
	host NativeHost
}

// NewNative wraps host.
func NewNative(host NativeHost) *Native {
	return &Native{host: host}
}

// Name implements Registrar.
func (n *Native) Name() string { return "native" }

// Register implements Registrar.
func (n *Native) Register(_ context.Context, name, url string) error {
	if n.host == nil {
		return ErrNoNativeHost
	}
	if err := n.host.RegisterServer(name, url); err != nil {
		return fmt.Errorf("integration: register %s: %w", name, err)
	}
	return nil
}

// Unregister implements Registrar.
func (n *Native) Unregister(_ context.Context, name string) error {
	if n.host == nil {
		return ErrNoNativeHost
	}
	if err := n.host.UnregisterServer(name); err != nil {
		return fmt.Errorf("integration: unregister %s: %w", name, err)
	}
	return nil
}

// Select prefers the native capability and falls back to the file-based
// registrar.
func Select(native NativeHost, file *FileConfig) Registrar {
	if native != nil {
		return NewNative(native)
	}
	return file
}

// ---------------------------------------------------------------------------
// Register / refresh
// ---------------------------------------------------------------------------

// Refresh re-registers an already configured server: unregister (errors
// ignored, the server may not be registered yet) then register.
func Refresh(ctx context.Context, r Registrar, name, url string) error {
	_ = r.Unregister(ctx, name)
	return r.Register(ctx, name, url)
}
