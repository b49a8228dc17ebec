package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linggen/linggen-editor/internal/backend"
	"github.com/linggen/linggen-editor/internal/backend/backendtest"
	"github.com/linggen/linggen-editor/internal/bridge"
	"github.com/linggen/linggen-editor/internal/config"
	"github.com/linggen/linggen-editor/internal/graph"
	"github.com/linggen/linggen-editor/internal/query"
	"github.com/linggen/linggen-editor/internal/resource"
	"github.com/linggen/linggen-editor/internal/state"
	"github.com/linggen/linggen-editor/internal/view"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type recordingOpener struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (o *recordingOpener) Open(_ context.Context, url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, url)
	return o.err
}

func (o *recordingOpener) opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.urls...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(event string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Broadcast(event string, data interface{}) { p.Publish(event, data) }

func (p *recordingPublisher) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	fake   *backendtest.Backend
	cmds   *Commands
	opener *recordingOpener
	pub    *recordingPublisher
	store  *state.Store
	url    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := backendtest.New()
	srv := fake.Start(t)

	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg, err := config.New(filepath.Join(t.TempDir(), "editor.yaml")).Load()
	require.NoError(t, err)
	cfg.Backend.HTTPURL = srv.URL

	f := &fixture{
		fake:   fake,
		opener: &recordingOpener{},
		pub:    &recordingPublisher{},
		store:  store,
		url:    srv.URL,
	}
	f.cmds = New(cfg, Deps{
		Notifier:    NewNotifier(f.pub, store),
		Opener:      f.opener,
		Jobs:        f.pub,
		JobInterval: 10 * time.Millisecond,
	})
	return f
}

func (f *fixture) notices(t *testing.T) []string {
	t.Helper()
	ns, err := f.store.RecentNotices(context.Background(), 50)
	require.NoError(t, err)
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Message)
	}
	return out
}

func projectGraph() *graph.Graph {
	return &graph.Graph{
		ProjectID: "proj",
		Nodes: []graph.Node{
			{ID: "a", Label: "a.go", Folder: "src"},
			{ID: "b", Label: "b.go", Folder: "src"},
			{ID: "c", Label: "c.go", Folder: "lib"},
		},
		Edges: []graph.Edge{
			{Source: "a", Target: "b", Kind: graph.EdgeKindImport},
			{Source: "b", Target: "c", Kind: graph.EdgeKindImport},
		},
		Status: graph.StatusReady,
	}
}

func startPanel(t *testing.T) *bridge.Panel {
	t.Helper()
	p := bridge.NewPanel("Linggen Graph: a.go", query.Viewport{Width: 800, Height: 600}, nil)
	p.Start(context.Background())
	t.Cleanup(p.Close)
	return p
}

type frame struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Error bool   `json:"error"`
	Meta  string `json:"meta"`
}

// waitMessage reads frames until a message frame arrives.
func waitMessage(t *testing.T, p *bridge.Panel) frame {
	t.Helper()
	id, frames := p.Subscribe()
	defer p.Unsubscribe(id)
	deadline := time.After(waitFor)
	for {
		select {
		case data := <-frames:
			var f frame
			require.NoError(t, json.Unmarshal(data, &f))
			if f.Type == "message" && !strings.HasPrefix(f.Text, "Loading") {
				return f
			}
		case <-deadline:
			t.Fatal("no message frame")
			return frame{}
		}
	}
}

func viewState(t *testing.T, p *bridge.Panel) view.State {
	t.Helper()
	s, ok := p.State(context.Background())
	require.True(t, ok)
	return s
}

func waitFullNodes(t *testing.T, p *bridge.Panel, n int) view.State {
	t.Helper()
	var s view.State
	require.Eventually(t, func() bool {
		s = viewState(t, p)
		return s.Full != nil && len(s.Full.Nodes) == n
	}, waitFor, tick)
	return s
}

var target = Target{Path: "/work/proj/src/a.go", WorkspaceRoot: "/work/proj"}

// ---------------------------------------------------------------------------
// OpenGraphView
// ---------------------------------------------------------------------------

func TestOpenGraphView_Offline(t *testing.T) {
	f := newFixture(t)
	f.fake.SetStatusCode(503)
	p := startPanel(t)

	err := f.cmds.OpenGraphView(context.Background(), p, target)
	assert.ErrorIs(t, err, ErrOffline)

	msg := waitMessage(t, p)
	assert.Equal(t, fmt.Sprintf("Linggen server is not reachable at %s.", f.url), msg.Text)
	assert.True(t, msg.Error)
	assert.Contains(t, f.notices(t)[0], "Please start Linggen and try again.")
	assert.Contains(t, f.pub.seen(), NoticeEvent)
}

func TestOpenGraphView_NoSources(t *testing.T) {
	f := newFixture(t)
	p := startPanel(t)

	err := f.cmds.OpenGraphView(context.Background(), p, target)
	assert.ErrorIs(t, err, ErrNoSources)
	msg := waitMessage(t, p)
	assert.Equal(t, "No Linggen sources found. Please add this project as a source in Linggen and index it first.", msg.Text)
	assert.False(t, msg.Error)
}

func TestOpenGraphView_NoMatchingSource(t *testing.T) {
	f := newFixture(t)
	f.fake.AddResource(backend.Resource{ID: "s9", Name: "other", Path: "/elsewhere/other"})
	p := startPanel(t)

	err := f.cmds.OpenGraphView(context.Background(), p, target)
	assert.ErrorIs(t, err, resource.ErrNotFound)
	assert.Contains(t, waitMessage(t, p).Text, "No Linggen source matches this workspace.")
	assert.Empty(t, f.cmds.cache.Len(), "nothing fetched")
}

func TestOpenGraphView_GraphFetchFails(t *testing.T) {
	f := newFixture(t)
	f.fake.AddResource(backend.Resource{ID: "s1", Name: "proj", Path: "/work/proj"})
	p := startPanel(t)

	err := f.cmds.OpenGraphView(context.Background(), p, target)
	require.Error(t, err)
	msg := waitMessage(t, p)
	assert.True(t, strings.HasPrefix(msg.Text, "Failed to load Linggen graph:"), msg.Text)
	assert.True(t, msg.Error)
}

func TestOpenGraphView_FocusesTargetFile(t *testing.T) {
	f := newFixture(t)
	f.fake.AddResource(backend.Resource{ID: "s1", Name: "proj", Path: "/work/proj"})
	f.fake.SetGraph("s1", projectGraph())
	p := startPanel(t)

	require.NoError(t, f.cmds.OpenGraphView(context.Background(), p, target))

	s := waitFullNodes(t, p, 3)
	assert.Equal(t, "a", s.FocusID)
	assert.Equal(t, query.ModeFocus, s.Mode)
	assert.Len(t, s.Current.Nodes, 2)
	assert.Equal(t, int64(1), f.fake.GraphFetches("s1"))
}

func TestOpenGraphView_UnknownFileShowsWholeGraph(t *testing.T) {
	f := newFixture(t)
	f.fake.AddResource(backend.Resource{ID: "s1", Name: "proj", Path: "/work/proj"})
	f.fake.SetGraph("s1", projectGraph())
	p := startPanel(t)

	tgt := Target{Path: "/work/proj/docs/readme.md", WorkspaceRoot: "/work/proj"}
	require.NoError(t, f.cmds.OpenGraphView(context.Background(), p, tgt))

	s := waitFullNodes(t, p, 3)
	assert.Empty(t, s.FocusID)
	assert.Len(t, s.Current.Nodes, 3)
}

func TestOpenGraphView_RefreshRefetches(t *testing.T) {
	f := newFixture(t)
	f.fake.AddResource(backend.Resource{ID: "s1", Name: "proj", Path: "/work/proj"})
	f.fake.SetGraph("s1", projectGraph())
	p := startPanel(t)
	require.NoError(t, f.cmds.OpenGraphView(context.Background(), p, target))
	waitFullNodes(t, p, 3)

	g := projectGraph()
	g.Nodes = append(g.Nodes, graph.Node{ID: "d", Label: "d.go", Folder: "src"})
	g.Edges = append(g.Edges, graph.Edge{Source: "d", Target: "a", Kind: graph.EdgeKindCall})
	f.fake.SetGraph("s1", g)

	require.True(t, p.Dispatch(bridge.UIEvent{Type: bridge.EventRefresh}))

	s := waitFullNodes(t, p, 4)
	assert.Equal(t, "a", s.FocusID)
	assert.Len(t, s.Current.Nodes, 3, "a, b and the new d")
	assert.Equal(t, int64(2), f.fake.GraphFetches("s1"))
}

func TestOpenGraphView_DuplicateRefreshIgnoredWhileInFlight(t *testing.T) {
	f := newFixture(t)
	f.fake.AddResource(backend.Resource{ID: "s1", Name: "proj", Path: "/work/proj"})
	f.fake.SetGraph("s1", projectGraph())
	p := startPanel(t)
	require.NoError(t, f.cmds.OpenGraphView(context.Background(), p, target))
	waitFullNodes(t, p, 3)

	gate := make(chan struct{})
	f.fake.Gate = gate

	require.True(t, p.Dispatch(bridge.UIEvent{Type: bridge.EventRefresh}))
	require.Eventually(t, func() bool { return f.fake.GraphFetches("s1") == 2 }, waitFor, tick)
	require.True(t, p.Dispatch(bridge.UIEvent{Type: bridge.EventRefresh}))

	// Let the second request reach the session before releasing the first.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(2), f.fake.GraphFetches("s1"), "second refresh dropped")

	// The flag clears once the first refresh lands.
	require.Eventually(t, func() bool {
		p.Dispatch(bridge.UIEvent{Type: bridge.EventRefresh})
		return f.fake.GraphFetches("s1") >= 3
	}, waitFor, 20*time.Millisecond)
}

func TestOpenGraphView_OpenLinggen(t *testing.T) {
	f := newFixture(t)
	f.fake.AddResource(backend.Resource{ID: "s1", Name: "proj", Path: "/work/proj"})
	f.fake.SetGraph("s1", projectGraph())
	p := startPanel(t)
	require.NoError(t, f.cmds.OpenGraphView(context.Background(), p, target))
	waitFullNodes(t, p, 3)

	require.True(t, p.Dispatch(bridge.UIEvent{Type: bridge.EventOpenLinggen}))
	require.Eventually(t, func() bool { return len(f.opener.opened()) == 1 }, waitFor, tick)
	assert.Equal(t, f.url, f.opener.opened()[0])
}

// ---------------------------------------------------------------------------
// IndexCurrentProject
// ---------------------------------------------------------------------------

func TestIndexCurrentProject_CreatesResourceAndWaits(t *testing.T) {
	f := newFixture(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		f.fake.CompleteJobs(backend.JobCompleted, "")
	}()
	job, err := f.cmds.IndexCurrentProject(context.Background(), "/work/fresh")
	require.NoError(t, err)
	assert.Equal(t, backend.JobCompleted, job.Status)

	res := f.fake.Resources()
	require.Len(t, res, 1)
	assert.Equal(t, "/work/fresh", res[0].Path)
	assert.Equal(t, "fresh", res[0].Name)
	assert.Equal(t, map[string]string{"source_id": res[0].ID, "mode": "incremental"}, f.fake.LastIndexRequest())

	assert.Contains(t, f.notices(t), "Started indexing job for Linggen resource: fresh")
	assert.Contains(t, f.pub.seen(), "job_progress")
}

func TestIndexCurrentProject_JobFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.AddResource(backend.Resource{ID: "s1", Name: "proj", Path: "/work/proj"})

	go func() {
		time.Sleep(30 * time.Millisecond)
		f.fake.CompleteJobs(backend.JobFailed, "disk full")
	}()
	job, err := f.cmds.IndexCurrentProject(context.Background(), "/work/proj")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, backend.JobFailed, job.Status)
	assert.Len(t, f.fake.Resources(), 1, "existing resource reused")
}

func TestIndexCurrentProject_Offline(t *testing.T) {
	f := newFixture(t)
	f.fake.SetStatusCode(500)

	_, err := f.cmds.IndexCurrentProject(context.Background(), "/work/proj")
	assert.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, []string{fmt.Sprintf("Linggen server is not reachable at %s. Cannot index project.", f.url)}, f.notices(t))
	assert.Empty(t, f.fake.Resources())
}

// ---------------------------------------------------------------------------
// ExplainAcrossProjects
// ---------------------------------------------------------------------------

func TestExplainAcrossProjects_BuildsPrompt(t *testing.T) {
	f := newFixture(t)
	f.fake.AddResource(backend.Resource{ID: "s1", Name: "proj", Path: "/work/proj"})
	f.fake.AddResource(backend.Resource{ID: "s2", Name: "lib", Path: "/work/lib"})
	f.fake.SetQueryReply(`{"results":[
		{"source_id":"s2","document_id":"pkg/x.go","content":"secret excerpt"},
		{"source_id":"s2","document_id":"pkg/x.go"},
		{"document_id":"y.go"}]}`)
	f.fake.SetMemories(backend.MemoryResult{ID: "m1", Path: "notes/a.md", SourceID: "s2"})

	out, err := f.cmds.ExplainAcrossProjects(context.Background(), ExplainRequest{
		Target:    target,
		StartLine: 3,
		EndLine:   4,
		Code:      "func A() {}",
	})
	require.NoError(t, err)

	assert.Equal(t, backend.QueryRequest{Query: "func A() {}", Limit: 3, ExcludeSourceID: "s1"}, f.fake.LastQuery())
	assert.Equal(t, "s1", out.SourceID)
	assert.Contains(t, out.Markdown, "Target file: src/a.go:3-4")
	assert.Equal(t, 1, strings.Count(out.Markdown, "- lib: pkg/x.go"))
	assert.Contains(t, out.Markdown, "- unknown_source: y.go")
	assert.Contains(t, out.Markdown, "- lib: notes/a.md")
	assert.NotContains(t, out.Markdown, "secret excerpt")
	assert.Contains(t, string(out.HTML), "<li>lib: pkg/x.go</li>")
	assert.Contains(t, string(out.HTML), "<title>Linggen Explain</title>")
	assert.Contains(t, f.notices(t), "Linggen: explanation received.")
}

func TestExplainAcrossProjects_RawReply(t *testing.T) {
	f := newFixture(t)
	f.fake.SetQueryReply("Explain this code across projects.\nplain answer\n```go\nx := 1\n```\n\n\ndone")

	out, err := f.cmds.ExplainAcrossProjects(context.Background(), ExplainRequest{
		Target: Target{Path: "/tmp/loose.go"},
		Code:   "x := 1",
	})
	require.NoError(t, err)
	assert.Empty(t, out.SourceID)
	assert.Empty(t, f.fake.LastQuery().ExcludeSourceID)
	assert.Equal(t, "plain answer\n\ndone", out.Markdown)
}

func TestExplainAcrossProjects_Offline(t *testing.T) {
	f := newFixture(t)
	f.fake.SetStatusCode(503)

	_, err := f.cmds.ExplainAcrossProjects(context.Background(), ExplainRequest{Target: target, Code: "x"})
	assert.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, []string{"Linggen is not running. Start it: linggen"}, f.notices(t))
}

func TestSnippet(t *testing.T) {
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = fmt.Sprintf("l%d", i+1)
	}
	content := strings.Join(lines, "\n")

	code, from, to := Snippet(content, 0, 0, 5)
	assert.Equal(t, 1, from)
	assert.Equal(t, 15, to)
	assert.True(t, strings.HasPrefix(code, "l1\n"))

	code, from, to = Snippet(content, 12, 10, 0)
	assert.Equal(t, []int{10, 12}, []int{from, to})
	assert.Equal(t, "l10\nl11\nl12", code)

	_, from, to = Snippet(content, 0, 0, 28)
	assert.Equal(t, []int{18, 30}, []int{from, to})
}

// ---------------------------------------------------------------------------
// Open / install / notices
// ---------------------------------------------------------------------------

func TestOpenInLinggen(t *testing.T) {
	f := newFixture(t)
	tgt := Target{Path: "/work/proj/src/a b.go", WorkspaceRoot: "/work/proj"}

	require.NoError(t, f.cmds.OpenInLinggen(context.Background(), tgt))
	assert.Equal(t, []string{f.url + "/?file=src%2Fa+b.go"}, f.opener.opened())

	outside := Target{Path: "/etc/hosts", WorkspaceRoot: "/work/proj"}
	assert.Equal(t, f.url+"/?file=%2Fetc%2Fhosts", f.cmds.LinggenURL(outside))
}

func TestInstall(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cmds.Install(context.Background()))
	assert.Equal(t, []string{"https://linggen.dev"}, f.opener.opened())

	f.opener.err = errors.New("no browser")
	assert.Error(t, f.cmds.Install(context.Background()))
	assert.Contains(t, f.notices(t)[0], "Failed to open installation page: no browser")
}

func TestNotifier_NilSinks(t *testing.T) {
	n := NewNotifier(nil, nil)
	got := n.Warn(context.Background(), "careful %d", 1)
	assert.Equal(t, LevelWarn, got.Level)
	assert.Equal(t, "careful 1", got.Message)
	assert.NotEmpty(t, got.ID)

	var none *Notifier
	assert.Equal(t, "x", none.Error(context.Background(), "x").Message)
}

func TestEnsurePrompts(t *testing.T) {
	root := t.TempDir()

	path, created, err := EnsurePrompts(root)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, filepath.Join(root, ".linggen", "prompts.md"), path)

	require.NoError(t, os.WriteFile(path, []byte("mine"), 0o644))
	_, created, err = EnsurePrompts(root)
	require.NoError(t, err)
	assert.False(t, created)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}
