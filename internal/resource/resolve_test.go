package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linggen/linggen-editor/internal/backend"
	"github.com/linggen/linggen-editor/internal/backend/backendtest"
)

func TestResolveResource_LongestPrefix(t *testing.T) {
	resources := []backend.Resource{
		{ID: "r1", Path: "/repo1"},
		{ID: "r2", Path: "/repo1/sub"},
	}
	got := ResolveResource(resources, "/repo1/sub/file.ts", "")
	require.NotNil(t, got)
	assert.Equal(t, "r2", got.ID)
}

func TestFindResourceForPath_ReversePrefix(t *testing.T) {
	// The workspace is a parent of the registered path.
	resources := []backend.Resource{{ID: "deep", Path: "/work/mono/service"}}
	got := FindResourceForPath(resources, "/work/mono")
	require.NotNil(t, got)
	assert.Equal(t, "deep", got.ID)
}

func TestFindResourceForPath_TieKeepsFirst(t *testing.T) {
	resources := []backend.Resource{
		{ID: "a", Path: "/x/y"},
		{ID: "b", Path: "/x/y"},
		{ID: "c", Path: "/x"},
	}
	got := FindResourceForPath(resources, "/x/y/z/long/file.go")
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ID)
}

func TestResolveResource_NameFallback(t *testing.T) {
	resources := []backend.Resource{
		{ID: "other", Name: "other", Path: "/tmp/other"},
		{ID: "byBase", Name: "x", Path: "/tmp/myrepo"},
		{ID: "byName", Name: "myrepo", Path: "/srv/checkouts/somewhere/else/entirely"},
	}
	got := ResolveResource(resources, "/Users/me/code/myrepo/src/a.go", "/Users/me/code/myrepo")
	require.NotNil(t, got)
	assert.Equal(t, "byName", got.ID, "name match (10) beats basename match (8)")
}

func TestResolveResource_LengthBonus(t *testing.T) {
	resources := []backend.Resource{
		{ID: "short", Path: "/m/myrepo"},
		{ID: "long", Path: "/mnt/containers/volumes/abcdef/myrepo"},
	}
	got := ResolveResource(resources, "/home/u/myrepo/a.go", "/home/u/myrepo")
	require.NotNil(t, got)
	assert.Equal(t, "long", got.ID)
}

func TestResolveResource_NoMatch(t *testing.T) {
	resources := []backend.Resource{{ID: "r", Name: "alpha", Path: "/srv/alpha"}}
	assert.Nil(t, ResolveResource(resources, "/home/u/beta/x.go", "/home/u/beta"))
	assert.Nil(t, ResolveResource(nil, "/a", ""))
}

func TestResolveResource_WindowsStylePath(t *testing.T) {
	resources := []backend.Resource{{ID: "w", Path: `C:\src\myrepo`}}
	got := ResolveResource(resources, "/home/u/myrepo/a.go", "/home/u/myrepo")
	require.NotNil(t, got)
	assert.Equal(t, "w", got.ID)
}

func TestRelativePath(t *testing.T) {
	r := &backend.Resource{Path: "/repo"}
	assert.Equal(t, "src/a.go", RelativePath(r, "/repo/src/a.go"))
	assert.Equal(t, "/elsewhere/b.go", RelativePath(r, "/elsewhere/b.go"))
	assert.Equal(t, "/x/y", RelativePath(nil, "/x/y"))
}

func TestGetOrCreateLocal(t *testing.T) {
	fake := backendtest.New()
	srv := fake.Start(t)
	c := backend.New(srv.URL)
	ctx := context.Background()

	created, err := GetOrCreateLocal(ctx, c, "/home/u/project")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "project", created.Name)

	again, err := GetOrCreateLocal(ctx, c, "/home/u/project")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Len(t, fake.Resources(), 1)
}

func TestFilter(t *testing.T) {
	f := NewFilter(&backend.Resource{
		IncludePatterns: []string{"*.go", "*.ts"},
		ExcludePatterns: []string{"vendor/", "*_gen.go"},
	})
	assert.False(t, f.Excluded("cmd/main.go"))
	assert.True(t, f.Excluded("vendor/lib/x.go"))
	assert.True(t, f.Excluded("api/types_gen.go"))
	assert.True(t, f.Excluded("README.md"))

	assert.False(t, NewFilter(nil).Excluded("anything"))
	assert.False(t, NewFilter(&backend.Resource{}).Excluded("anything"))
}
