package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/linggen/linggen-editor/internal/bridge"
	"github.com/linggen/linggen-editor/internal/graph"
	"github.com/linggen/linggen-editor/internal/metrics"
	"github.com/linggen/linggen-editor/internal/query"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type frame struct {
	Type string `json:"type"`
	SVG  string `json:"svg"`
	Meta string `json:"meta"`
	Mode string `json:"mode"`
	Text string `json:"text"`
}

func chainGraph() *graph.Graph {
	return &graph.Graph{
		ProjectID: "p1",
		Nodes: []graph.Node{
			{ID: "a", Label: "a.go", Folder: "src"},
			{ID: "b", Label: "b.go", Folder: "src"},
			{ID: "c", Label: "c.go", Folder: "src"},
		},
		Edges: []graph.Edge{
			{Source: "a", Target: "b", Kind: graph.EdgeKindImport},
			{Source: "b", Target: "c", Kind: graph.EdgeKindImport},
		},
		NodeCount: 3,
		EdgeCount: 2,
		Status:    graph.StatusReady,
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, *bridge.Panel) {
	t.Helper()
	s := NewServer(nil, metrics.NewRegistry())
	s.RegisterRoutes()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	p := bridge.NewPanel("Linggen Graph", query.Viewport{Width: 800, Height: 600}, nil)
	p.Start(context.Background())
	t.Cleanup(p.Close)
	s.AddView(p)
	return s, ts, p
}

func TestHealth(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["views"])
}

func TestListViews(t *testing.T) {
	_, ts, p := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/views")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Views []viewSummary `json:"views"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Views, 1)
	assert.Equal(t, p.ID(), body.Views[0].ID)
	assert.Equal(t, "/views/"+p.ID(), body.Views[0].URL)
}

func TestViewPage(t *testing.T) {
	_, ts, p := newTestServer(t)

	resp, err := http.Get(ts.URL + "/views/" + p.ID())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	html, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Loading Linggen graph")
	assert.Contains(t, string(html), p.ID())
}

func TestUnknownViewIs404(t *testing.T) {
	_, ts, _ := newTestServer(t)

	for _, path := range []string{"/views/nope", "/views/nope/state"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestPostEventAndState(t *testing.T) {
	_, ts, p := newTestServer(t)
	g := chainGraph()
	require.True(t, p.Post(bridge.GraphData(g, g, "a")))

	resp, err := http.Post(ts.URL+"/views/"+p.ID()+"/events", "application/json",
		strings.NewReader(`{"type":"click","nodeId":"c"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/views/" + p.ID() + "/state")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var st struct {
			FocusID string `json:"focus_node_id"`
		}
		if json.NewDecoder(resp.Body).Decode(&st) != nil {
			return false
		}
		return st.FocusID == "c"
	}, waitFor, tick)
}

func TestPostEventRejectsBadBody(t *testing.T) {
	_, ts, p := newTestServer(t)

	for _, body := range []string{`not json`, `{}`} {
		resp, err := http.Post(ts.URL+"/views/"+p.ID()+"/events", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestPostEventRateLimited(t *testing.T) {
	s, ts, p := newTestServer(t)
	// Routes captured the limiter pointer, so exhaust it in place.
	s.eventLimiter.SetLimit(rate.Limit(0))
	s.eventLimiter.SetBurst(0)

	resp, err := http.Post(ts.URL+"/views/"+p.ID()+"/events", "application/json",
		strings.NewReader(`{"type":"dragEnd"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "linggen_editor_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	_, ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/views", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func readFrame(t *testing.T, ws *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(waitFor)))
	var f frame
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

func TestViewSocket(t *testing.T) {
	_, ts, p := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/views/" + p.ID() + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	f := readFrame(t, ws)
	assert.Equal(t, "message", f.Type)
	assert.Equal(t, "Loading Linggen graph…", f.Text)

	g := chainGraph()
	p.Post(bridge.GraphData(g, g, "a"))
	f = readFrame(t, ws)
	assert.Equal(t, "frame", f.Type)
	assert.Equal(t, "2 nodes · 1 edges", f.Meta)

	require.NoError(t, ws.WriteJSON(bridge.UIEvent{Type: bridge.EventToggleMode}))
	f = readFrame(t, ws)
	assert.Equal(t, "all", f.Mode)
	assert.Equal(t, "3 nodes · 2 edges", f.Meta)

	require.NoError(t, ws.WriteJSON(bridge.UIEvent{Type: bridge.EventRefresh}))
	select {
	case msg := <-p.Outbound():
		assert.Equal(t, bridge.MsgRefresh, msg.Type)
	case <-time.After(waitFor):
		t.Fatal("refresh not forwarded")
	}
}

func TestViewSocketClosesWithPanel(t *testing.T) {
	s, ts, p := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/views/" + p.ID() + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	readFrame(t, ws)

	s.RemoveView(p.ID())
	p.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(waitFor)))
	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestSSEDeliversViewEvents(t *testing.T) {
	s, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return s.sse.ClientCount() == 1 }, waitFor, tick)

	NewJobBroadcaster(s.sse).Broadcast("job_progress", map[string]string{"job_id": "j1"})

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: job_progress\n", line)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: {\"job_id\":\"j1\"}\n", line)
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer(nil, nil)
	s.RegisterRoutes()
	base, err := s.Start("127.0.0.1:0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(base, "http://127.0.0.1:"))

	p := bridge.NewPanel("x", query.Viewport{Width: 10, Height: 10}, nil)
	p.Start(context.Background())
	s.AddView(p)
	assert.Equal(t, base+"/views/"+p.ID(), s.ViewURL(p.ID()))

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case <-p.Done():
	default:
		t.Fatal("panel not closed by shutdown")
	}
}

func TestSSEReplaysMonitorStatusAndFilters(t *testing.T) {
	s, ts, _ := newTestServer(t)
	s.sse.Publish(EventMonitorStatus, map[string]string{"status": "running"})
	s.sse.Publish(EventMonitorStatus, map[string]string{"status": "offline"})

	resp, err := http.Get(ts.URL + "/api/events?events=" + EventMonitorStatus + ",notice")
	require.NoError(t, err)
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)

	readFrame := func() []string {
		var lines []string
		for {
			line, err := r.ReadString('\n')
			require.NoError(t, err)
			if line == "\n" {
				return lines
			}
			lines = append(lines, strings.TrimSuffix(line, "\n"))
		}
	}

	// view_opened took seq 1. Only the latest sticky value is replayed.
	assert.Equal(t, []string{"event: monitor_status", `data: {"status":"offline"}`, "id: 3"}, readFrame())

	require.Eventually(t, func() bool { return s.sse.ClientCount() == 1 }, waitFor, tick)
	NewJobBroadcaster(s.sse).Broadcast("job_progress", map[string]string{"job_id": "j1"})
	s.sse.Publish("notice", map[string]string{"message": "hi"})

	assert.Equal(t, []string{"event: notice", `data: {"message":"hi"}`, "id: 5"}, readFrame())

	last, ok := s.sse.Last(EventMonitorStatus)
	require.True(t, ok)
	assert.EqualValues(t, 3, last.Seq)
	_, ok = s.sse.Last("notice")
	assert.False(t, ok)
}
