// Package host implements the editor commands: opening the graph view,
// indexing the workspace, explaining code across projects and opening the
// Linggen UI. Commands report to the user through a Notifier.
package host

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/linggen/linggen-editor/internal/backend"
	"github.com/linggen/linggen-editor/internal/cache"
	"github.com/linggen/linggen-editor/internal/config"
)

var (
	// ErrOffline is returned when the backend fails its health check.
	ErrOffline = errors.New("host: Linggen server is not reachable")
	// ErrNoSources is returned when the backend has no sources at all.
	ErrNoSources = errors.New("host: no Linggen sources found")
)

const defaultJobInterval = 2 * time.Second

// Deps are the collaborators a Commands needs. Nil fields get defaults
// built from the config.
type Deps struct {
	Client   *backend.Client
	Cache    *cache.GraphCache
	Notifier *Notifier
	Opener   Opener
	// Jobs receives indexing progress; nil disables progress events.
	Jobs        backend.Broadcaster
	JobInterval time.Duration
}

// Commands runs editor commands against one backend.
type Commands struct {
	client   *backend.Client
	cache    *cache.GraphCache
	notifier *Notifier
	opener   Opener
	jobs     backend.Broadcaster

	explainEndpoint string
	installURL      string
	jobInterval     time.Duration
}

// New creates the command set for cfg.
func New(cfg config.Config, d Deps) *Commands {
	if d.Client == nil {
		d.Client = backend.New(cfg.Backend.HTTPURL)
	}
	if d.Cache == nil {
		d.Cache = cache.New(d.Client, nil)
	}
	if d.Notifier == nil {
		d.Notifier = NewNotifier(nil, nil)
	}
	if d.Opener == nil {
		d.Opener = BrowserOpener{}
	}
	if d.JobInterval <= 0 {
		d.JobInterval = defaultJobInterval
	}
	return &Commands{
		client:          d.Client,
		cache:           d.Cache,
		notifier:        d.Notifier,
		opener:          d.Opener,
		jobs:            d.Jobs,
		explainEndpoint: cfg.Backend.ExplainEndpoint,
		installURL:      cfg.InstallURL,
		jobInterval:     d.JobInterval,
	}
}

// Client returns the backend client.
func (c *Commands) Client() *backend.Client { return c.client }

// Target is the file or folder a command acts on.
type Target struct {
	Path          string // absolute
	WorkspaceRoot string // "" when the file is outside any workspace
}

func (t Target) root() string {
	if t.WorkspaceRoot != "" {
		return t.WorkspaceRoot
	}
	return t.Path
}

// workspaceRelative returns Path relative to the workspace root with
// forward slashes, or Path itself when it lies outside the workspace.
func (t Target) workspaceRelative() (string, bool) {
	if t.WorkspaceRoot == "" || !strings.HasPrefix(t.Path, t.WorkspaceRoot) {
		return t.Path, false
	}
	rel, err := filepath.Rel(t.WorkspaceRoot, t.Path)
	if err != nil {
		return t.Path, false
	}
	return filepath.ToSlash(rel), true
}

// ============================== OPEN / INSTALL ============================

// LinggenURL is the backend UI address for target.
func (c *Commands) LinggenURL(target Target) string {
	rel, _ := target.workspaceRelative()
	return c.client.BaseURL() + "/?file=" + url.QueryEscape(rel)
}

// OpenInLinggen opens target in the backend's web UI.
func (c *Commands) OpenInLinggen(ctx context.Context, target Target) error {
	u := c.LinggenURL(target)
	if err := c.opener.Open(ctx, u); err != nil {
		c.notifier.Error(ctx, "Failed to open Linggen: %v. Make sure Linggen server is running.", err)
		return err
	}
	c.notifier.Info(ctx, "Opening %s in Linggen...", filepath.Base(target.Path))
	return nil
}

// Install opens the installation page.
func (c *Commands) Install(ctx context.Context) error {
	if err := c.opener.Open(ctx, c.installURL); err != nil {
		c.notifier.Error(ctx, "Failed to open installation page: %v", err)
		return fmt.Errorf("host: install: %w", err)
	}
	c.notifier.Info(ctx, "Opening Linggen installation page in your browser...")
	return nil
}
