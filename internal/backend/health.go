package backend

import (
	"context"
	"log/slog"
	"net/http"
)

// CheckServerHealth probes GET /api/status with a short deadline. Any
// transport error or non-2xx status reports false; it never returns an
// error.
func (c *Client) CheckServerHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.JoinURL("/api/status"), nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("health check failed", "url", c.baseURL, "error", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
