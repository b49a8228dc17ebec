// ===========================================================================
// scripts/fake_backend: serve a fake Linggen backend for local demos
//
// Usage:
//   go run ./scripts/fake_backend \
//       --addr 127.0.0.1:8787 \
//       --workspace "$PWD" \
//       --files 120
//
// Then, in another shell:
//   go run ./cmd/linggen-editor graph --open
// ===========================================================================
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/linggen/linggen-editor/internal/backend"
	"github.com/linggen/linggen-editor/internal/backend/backendtest"
)

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

var (
	addr      = flag.String("addr", "127.0.0.1:8787", "Listen address")
	workspace = flag.String("workspace", ".", "Workspace registered as a local resource")
	files     = flag.Int("files", 120, "Number of file nodes in the demo graph")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	jobDelay  = flag.Duration("job-delay", 3*time.Second, "Time before index jobs complete")
)

func main() {
	flag.Parse()

	root, err := filepath.Abs(*workspace)
	if err != nil {
		log.Fatalf("  ✗ Invalid workspace: %v", err)
	}

	fake := backendtest.New()
	res := fake.AddResource(backend.Resource{
		Name:    filepath.Base(root),
		Path:    root,
		Enabled: true,
	})
	g := backendtest.DemoGraph(res.ID, *files, *seed)
	fake.SetGraph(res.ID, g)

	// A second project gives explain something to find.
	lib := fake.AddResource(backend.Resource{Name: "shared-lib", Path: filepath.Join(os.TempDir(), "shared-lib"), Enabled: true})
	fake.SetGraph(lib.ID, backendtest.DemoGraph(lib.ID, *files/4+1, *seed+1))
	reply, err := json.Marshal(backend.QueryResponse{Results: []backend.QueryResult{
		{SourceID: lib.ID, DocumentID: "client/retry.go", Content: "func Retry(ctx context.Context, fn func() error) error"},
		{SourceID: lib.ID, DocumentID: "client/backoff.go", Content: "type Backoff struct"},
	}})
	if err != nil {
		log.Fatalf("  ✗ Encode query reply: %v", err)
	}
	fake.SetQueryReply(string(reply))
	fake.SetMemories(backend.MemoryResult{ID: "demo-retry", Title: "Retry policy", FilePath: ".linggen/memory/retry.md", SourceID: lib.ID})

	log.Println("══════════════════════════════════════════")
	log.Println("  LINGGEN — Fake Backend")
	log.Println("══════════════════════════════════════════")
	log.Printf("  Addr:      http://%s", *addr)
	log.Printf("  Workspace: %s", root)
	log.Printf("  Source:    %s", res.ID)
	log.Printf("  Graph:     %d nodes, %d edges", g.NodeCount, g.EdgeCount)
	log.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Index jobs started by the editor finish after a fixed delay.
	go func() {
		ticker := time.NewTicker(*jobDelay)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fake.CompleteJobs(backend.JobCompleted, "")
			}
		}
	}()

	srv := &http.Server{Addr: *addr, Handler: fake}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("  ✗ Server error: %v", err)
		os.Exit(1)
	}
	log.Println("  ✓ Stopped")
}
