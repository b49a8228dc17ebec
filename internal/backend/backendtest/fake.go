// Package backendtest provides an in-process fake of the Linggen backend
// HTTP API for tests and local demos.
package backendtest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/linggen/linggen-editor/internal/backend"
	"github.com/linggen/linggen-editor/internal/graph"
)

// ---------------------------------------------------------------------------
// Backend
// ---------------------------------------------------------------------------

// Backend is a mutable fake. All setters are safe to call while requests
// are being served.
type Backend struct {
	mu           sync.Mutex
	statusCode   int
	resources    []backend.Resource
	graphs       map[string]*graph.Graph
	statuses     map[string]graph.StatusInfo
	jobs         []backend.Job
	memories     []backend.MemoryResult
	queryReply   string
	lastQuery    backend.QueryRequest
	lastIndexReq map[string]string

	// GraphFetches counts graph requests per source id.
	graphFetches map[string]*atomic.Int64
	// Gate, when non-nil, is received from before each graph response.
	Gate chan struct{}

	mcpDown    atomic.Bool
	mcpHandler http.Handler
	mux        *http.ServeMux
}

// New returns a healthy fake with no resources.
func New() *Backend {
	b := &Backend{
		statusCode:   http.StatusOK,
		graphs:       make(map[string]*graph.Graph),
		statuses:     make(map[string]graph.StatusInfo),
		graphFetches: make(map[string]*atomic.Int64),
		mux:          http.NewServeMux(),
	}
	server := newMCPServer()
	b.mcpHandler = mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return server }, nil)
	b.routes()
	return b
}

// Start serves b on a random local port; the server is closed when the
// test ends.
func (b *Backend) Start(t interface{ Cleanup(func()) }) *httptest.Server {
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return srv
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// ============================== SETTERS ===================================

// SetStatusCode sets the code GET /api/status answers with.
func (b *Backend) SetStatusCode(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusCode = code
}

// AddResource registers a resource and returns it.
func (b *Backend) AddResource(r backend.Resource) backend.Resource {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ResourceType == "" {
		r.ResourceType = backend.ResourceLocal
	}
	b.resources = append(b.resources, r)
	return r
}

// Resources returns a copy of the registered resources.
func (b *Backend) Resources() []backend.Resource {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.Resource(nil), b.resources...)
}

// SetGraph sets the graph served for sourceID.
func (b *Backend) SetGraph(sourceID string, g *graph.Graph) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graphs[sourceID] = g
	if _, ok := b.statuses[sourceID]; !ok {
		n, m := len(g.Nodes), len(g.Edges)
		b.statuses[sourceID] = graph.StatusInfo{Status: graph.StatusReady, NodeCount: &n, EdgeCount: &m}
	}
}

// SetGraphStatus overrides the status served for sourceID.
func (b *Backend) SetGraphStatus(sourceID string, s graph.StatusInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[sourceID] = s
}

// SetJobs replaces the job list.
func (b *Backend) SetJobs(jobs ...backend.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs = jobs
}

// SetMemories replaces the semantic memory search results.
func (b *Backend) SetMemories(m ...backend.MemoryResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.memories = m
}

// SetQueryReply sets the raw body returned by the query endpoint.
func (b *Backend) SetQueryReply(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queryReply = body
}

// LastQuery returns the most recent query request body.
func (b *Backend) LastQuery() backend.QueryRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastQuery
}

// LastIndexRequest returns the most recent index_source body.
func (b *Backend) LastIndexRequest() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastIndexReq
}

// GraphFetches returns how many graph requests sourceID has received.
func (b *Backend) GraphFetches(sourceID string) int64 {
	b.mu.Lock()
	c := b.counter(sourceID)
	b.mu.Unlock()
	return c.Load()
}

// counter must be called with b.mu held.
func (b *Backend) counter(sourceID string) *atomic.Int64 {
	c, ok := b.graphFetches[sourceID]
	if !ok {
		c = &atomic.Int64{}
		b.graphFetches[sourceID] = c
	}
	return c
}

// ============================== ROUTES ====================================

func (b *Backend) routes() {
	b.mux.HandleFunc("GET /api/status", b.handleStatus)
	b.mux.HandleFunc("GET /api/resources", b.handleListResources)
	b.mux.HandleFunc("POST /api/resources", b.handleCreateResource)
	b.mux.HandleFunc("GET /api/sources/{id}/graph", b.handleGraph)
	b.mux.HandleFunc("GET /api/sources/{id}/graph/with_status", b.handleGraph)
	b.mux.HandleFunc("GET /api/sources/{id}/graph/status", b.handleGraphStatus)
	b.mux.HandleFunc("POST /api/index_source", b.handleIndexSource)
	b.mux.HandleFunc("GET /api/jobs", b.handleJobs)
	b.mux.HandleFunc("POST /api/memory/search_semantic", b.handleMemorySearch)
	b.mux.HandleFunc("POST /api/query", b.handleQuery)
	b.mux.HandleFunc("/mcp/sse", b.handleMCP)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (b *Backend) handleStatus(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	code := b.statusCode
	b.mu.Unlock()
	writeJSON(w, code, map[string]string{"status": http.StatusText(code)})
}

func (b *Backend) handleListResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"resources": b.Resources()})
}

func (b *Backend) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "invalid resource", http.StatusBadRequest)
		return
	}
	res := b.AddResource(backend.Resource{
		Name:            req.Name,
		ResourceType:    req.ResourceType,
		Path:            req.Path,
		Enabled:         true,
		IncludePatterns: req.IncludePatterns,
		ExcludePatterns: req.ExcludePatterns,
	})
	writeJSON(w, http.StatusOK, backend.CreateResourceResponse{ID: res.ID, Name: res.Name})
}

func (b *Backend) handleGraph(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	b.counter(id).Add(1)
	g, ok := b.graphs[id]
	status := b.statuses[id]
	gate := b.Gate
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		http.Error(w, "graph not found", http.StatusNotFound)
		return
	}
	out := g.Clone()
	if strings.HasSuffix(r.URL.Path, "/with_status") {
		out.Status = status.Status
		out.NodeCount = len(out.Nodes)
		out.EdgeCount = len(out.Edges)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleGraphStatus(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	s, ok := b.statuses[r.PathValue("id")]
	b.mu.Unlock()
	if !ok {
		s = graph.StatusInfo{Status: graph.StatusMissing}
	}
	writeJSON(w, http.StatusOK, s)
}

func (b *Backend) handleIndexSource(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	jobID := uuid.New().String()

	b.mu.Lock()
	b.lastIndexReq = req
	b.jobs = append(b.jobs, backend.Job{ID: jobID, SourceID: req["source_id"], Status: backend.JobRunning})
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.IndexSourceResponse{JobID: jobID})
}

// CompleteJobs marks every running job with the given terminal status.
func (b *Backend) CompleteJobs(status backend.JobStatus, errMsg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.jobs {
		if b.jobs[i].Status == backend.JobRunning {
			b.jobs[i].Status = status
			if errMsg != "" {
				msg := errMsg
				b.jobs[i].Error = &msg
			}
		}
	}
}

func (b *Backend) handleJobs(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	jobs := append([]backend.Job(nil), b.jobs...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

func (b *Backend) handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	mem := append([]backend.MemoryResult(nil), b.memories...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": mem})
}

func (b *Backend) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req backend.QueryRequest
	json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	b.lastQuery = req
	reply := b.queryReply
	b.mu.Unlock()

	if reply == "" {
		reply = `{"results":[]}`
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, reply)
}

// SetMCPAvailable toggles the MCP endpoint; when off it answers 503.
func (b *Backend) SetMCPAvailable(ok bool) {
	b.mcpDown.Store(!ok)
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"text to search the indexed projects for"`
}

// newMCPServer builds the MCP server mounted at /mcp/sse. It exposes one
// search tool so clients have something to list.
func newMCPServer() *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: "linggen-fake", Version: "0.0.0"}, nil)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "search_codebase",
		Description: "Search indexed projects",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "no results for " + args.Query}},
		}, nil, nil
	})
	return s
}

func (b *Backend) handleMCP(w http.ResponseWriter, r *http.Request) {
	if b.mcpDown.Load() {
		http.Error(w, "mcp unavailable", http.StatusServiceUnavailable)
		return
	}
	b.mcpHandler.ServeHTTP(w, r)
}

// ---------------------------------------------------------------------------
// Demo graph generator
// ---------------------------------------------------------------------------

var demoFolders = []string{"", "cmd", "internal/api", "internal/store", "internal/util", "web/src"}

var demoLanguages = []string{"go", "go", "go", "typescript"}

// DemoGraph builds a reproducible synthetic graph with files nodes and
// roughly 1.5 edges per node.
func DemoGraph(projectID string, files int, seed int64) *graph.Graph {
	rng := rand.New(rand.NewSource(seed))
	g := &graph.Graph{ProjectID: projectID, Status: graph.StatusReady}

	for i := 0; i < files; i++ {
		folder := demoFolders[rng.Intn(len(demoFolders))]
		lang := demoLanguages[rng.Intn(len(demoLanguages))]
		ext := ".go"
		if lang == "typescript" {
			ext = ".ts"
		}
		label := fmt.Sprintf("file%03d%s", i, ext)
		id := label
		if folder != "" {
			id = folder + "/" + label
		}
		g.Nodes = append(g.Nodes, graph.Node{ID: id, Label: label, Language: lang, Folder: folder})
	}
	if files > 1 {
		for i := 0; i < files*3/2; i++ {
			s := g.Nodes[rng.Intn(files)].ID
			t := g.Nodes[rng.Intn(files)].ID
			if s == t {
				continue
			}
			g.Edges = append(g.Edges, graph.Edge{Source: s, Target: t, Kind: graph.EdgeKindImport})
		}
	}
	g.NodeCount = len(g.Nodes)
	g.EdgeCount = len(g.Edges)
	return g
}
