package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ProbeTimeout bounds one readiness probe.
const ProbeTimeout = 1500 * time.Millisecond

// Prober checks whether an MCP endpoint is ready.
type Prober func(ctx context.Context, url string) error

func newClient() *mcp.Client {
	return mcp.NewClient(&mcp.Implementation{Name: "linggen-editor", Version: "0.1.0"}, nil)
}

// Probe opens and closes an MCP client session over SSE.
func Probe(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	session, err := newClient().Connect(ctx, &mcp.SSEClientTransport{
		Endpoint:   url,
		HTTPClient: &http.Client{},
	}, nil)
	if err != nil {
		return fmt.Errorf("integration: probe %s: %w", url, err)
	}
	return session.Close()
}

// WaitReady probes url up to attempts times, interval apart. It reports
// whether any probe succeeded.
func WaitReady(ctx context.Context, url string, attempts int, interval time.Duration, probe Prober) bool {
	if probe == nil {
		probe = Probe
	}
	for i := 0; i < attempts; i++ {
		err := probe(ctx, url)
		if err == nil {
			return true
		}
		slog.Debug("MCP endpoint not ready", "url", url, "attempt", i+1, "error", err)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	return false
}

// ListTools connects to the MCP server at url and returns its tool names.
func ListTools(ctx context.Context, url string) ([]string, error) {
	session, err := newClient().Connect(ctx, &mcp.SSEClientTransport{Endpoint: url}, nil)
	if err != nil {
		return nil, fmt.Errorf("integration: connect %s: %w", url, err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("integration: list tools: %w", err)
	}
	names := make([]string, 0, len(res.Tools))
	for _, t := range res.Tools {
		names = append(names, t.Name)
	}
	return names, nil
}
