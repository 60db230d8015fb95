package contentsstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contents.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddContentsAndGetContents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	paths := []string{
		"/usr/bin/foo",
		"/usr/share/applications/foo.desktop",
		"/usr/share/metainfo/org.example.foo.appdata.xml",
	}
	require.NoError(t, s.AddContents(ctx, "foo/1.0/amd64", paths))

	got, err := s.GetContents(ctx, "foo/1.0/amd64")
	require.NoError(t, err)
	assert.ElementsMatch(t, paths, got)
}

func TestAddContentsIsIdempotentUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddContents(ctx, "foo/1.0/amd64", []string{"/a", "/b"}))
	require.NoError(t, s.AddContents(ctx, "foo/1.0/amd64", []string{"/c"}))

	got, err := s.GetContents(ctx, "foo/1.0/amd64")
	require.NoError(t, err)
	assert.Equal(t, []string{"/c"}, got)
}

func TestPackageExists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	exists, err := s.PackageExists(ctx, "missing/1/amd64")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.AddContents(ctx, "foo/1.0/amd64", []string{"/a"}))
	exists, err = s.PackageExists(ctx, "foo/1.0/amd64")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetContents_Unknown(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetContents(context.Background(), "nope/1/amd64")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetIconFilesMap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddContents(ctx, "foo/1.0/amd64", []string{
		"/usr/share/icons/hicolor/48x48/apps/foo.png",
		"/usr/share/pixmaps/foo.xpm",
		"/usr/bin/foo",
	}))
	require.NoError(t, s.AddContents(ctx, "bar/2.0/amd64", []string{
		"/usr/share/icons/hicolor/48x48/apps/bar.png",
	}))

	m, err := s.GetIconFilesMap(ctx, []string{"foo/1.0/amd64"})
	require.NoError(t, err)
	assert.Equal(t, "foo/1.0/amd64", m["/usr/share/icons/hicolor/48x48/apps/foo.png"])
	assert.Equal(t, "foo/1.0/amd64", m["/usr/share/pixmaps/foo.xpm"])
	assert.NotContains(t, m, "/usr/bin/foo")
	assert.NotContains(t, m, "/usr/share/icons/hicolor/48x48/apps/bar.png")
}

func TestGetLocaleMap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddContents(ctx, "foo/1.0/amd64", []string{
		"/usr/share/locale/de/LC_MESSAGES/foo.mo",
		"/usr/bin/foo",
	}))

	m, err := s.GetLocaleMap(ctx, []string{"foo/1.0/amd64"})
	require.NoError(t, err)
	assert.Equal(t, "foo/1.0/amd64", m["foo.mo"])
	assert.Len(t, m, 1)
}

func TestRemovePackages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddContents(ctx, "foo/1.0/amd64", []string{"/a"}))
	require.NoError(t, s.AddContents(ctx, "bar/1.0/amd64", []string{"/b"}))

	require.NoError(t, s.RemovePackages(ctx, []string{"foo/1.0/amd64"}))

	exists, err := s.PackageExists(ctx, "foo/1.0/amd64")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.PackageExists(ctx, "bar/1.0/amd64")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAllPkids(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddContents(ctx, "foo/1.0/amd64", []string{"/a"}))
	require.NoError(t, s.AddContents(ctx, "bar/1.0/amd64", []string{"/b"}))

	pkids, err := s.AllPkids(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"foo/1.0/amd64", "bar/1.0/amd64"}, pkids)
}

func TestSync(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Sync())
}
