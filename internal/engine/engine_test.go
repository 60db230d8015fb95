package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/contentsstore"
	"github.com/asgen-go/asgen/internal/datastore"
	"github.com/asgen-go/asgen/internal/hints"
	"github.com/asgen-go/asgen/internal/model"
)

const fakeMetainfo = `<?xml version="1.0" encoding="UTF-8"?>
<component type="desktop-app">
  <id>org.example.Bar</id>
  <name>Bar</name>
  <summary>A bar app</summary>
</component>
`

type fakePkg struct {
	name     string
	arch     string
	contents []string
	files    map[string][]byte
}

func (p *fakePkg) Name() string                  { return p.name }
func (p *fakePkg) Version() string                { return "1.0" }
func (p *fakePkg) Arch() string                   { return p.arch }
func (p *fakePkg) Maintainer() string             { return "" }
func (p *fakePkg) Kind() model.PackageKind        { return model.PackageReal }
func (p *fakePkg) Pkid() string                   { return model.Pkid(p.name, "1.0", p.arch) }
func (p *fakePkg) Summary() map[string]string     { return nil }
func (p *fakePkg) Description() map[string]string { return nil }
func (p *fakePkg) Contents() []string             { return p.contents }
func (p *fakePkg) Gst() *model.GstInfo            { return nil }
func (p *fakePkg) Finish()                        {}

func (p *fakePkg) GetFileData(path string) ([]byte, error) {
	data, ok := p.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

// fakeIndex is a minimal backend.PackageIndex double: one fixed package
// list per call, a mutable mtime for exercising HasChanges.
type fakeIndex struct {
	pkgs  []model.Package
	mtime int64
}

func (f *fakeIndex) PackagesFor(ctx context.Context, suite, section, arch string, withLongDescs bool) ([]model.Package, error) {
	return f.pkgs, nil
}

func (f *fakeIndex) PackageForFile(ctx context.Context, path, suite, section string) (model.Package, error) {
	return nil, os.ErrNotExist
}

func (f *fakeIndex) HasChanges(ctx context.Context, suite, section, arch string, storedMtime int64) (bool, int64, error) {
	return f.mtime != storedMtime, f.mtime, nil
}

func (f *fakeIndex) Release() {}

type fakeExporter struct {
	calls int
}

func (f *fakeExporter) Export(ctx context.Context, suite model.Suite, section, arch string, pkgs []model.Package) error {
	f.calls++
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeIndex, *fakeExporter) {
	t.Helper()
	workspace := t.TempDir()

	cfg := appconfig.NewConfig()
	cfg.WorkspaceDir = workspace
	cfg.Suites = map[string]appconfig.SuiteDef{
		"stable": {
			Sections:      []string{"main"},
			Architectures: []string{"amd64"},
		},
	}

	require.NoError(t, os.MkdirAll(cfg.DBDir(), 0o755))
	contents, err := contentsstore.Open(filepath.Join(cfg.DBDir(), "contents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = contents.Close() })

	data, err := datastore.Open(filepath.Join(cfg.DBDir(), "data.db"), cfg.MetadataType)
	require.NoError(t, err)
	t.Cleanup(func() { _ = data.Close() })

	reg := hints.New()
	idx := &fakeIndex{mtime: 1}
	exp := &fakeExporter{}

	e, err := New(cfg, contents, data, reg, idx, exp)
	require.NoError(t, err)
	return e, idx, exp
}

func TestIsInteresting(t *testing.T) {
	assert.True(t, isInteresting(&fakePkg{contents: []string{"/usr/share/metainfo/foo.xml"}}))
	assert.True(t, isInteresting(&fakePkg{contents: []string{"/usr/share/applications/foo.desktop"}}))
	assert.True(t, isInteresting(&fakePkg{contents: []string{"/usr/share/appdata/foo.xml"}}))
	assert.False(t, isInteresting(&fakePkg{contents: []string{"/usr/bin/foo"}}))
}

func TestRun_SeedsContentsAndIgnoresUninteresting(t *testing.T) {
	e, _, exp := newTestEngine(t)
	ctx := context.Background()

	e.backend = &fakeIndex{mtime: 1, pkgs: []model.Package{
		&fakePkg{name: "foo", arch: "amd64", contents: []string{"/usr/bin/foo"}},
		&fakePkg{name: "bar", arch: "amd64", contents: []string{
			"/usr/share/metainfo/org.example.Bar.metainfo.xml",
		}, files: map[string][]byte{
			"/usr/share/metainfo/org.example.Bar.metainfo.xml": []byte(fakeMetainfo),
		}},
	}}

	require.NoError(t, e.Run(ctx, "stable", "", true))

	ignored, err := e.data.IsIgnored(ctx, "foo/1.0/amd64")
	require.NoError(t, err)
	assert.True(t, ignored)

	ignored, err = e.data.IsIgnored(ctx, "bar/1.0/amd64")
	require.NoError(t, err)
	assert.False(t, ignored)

	recorded, err := e.data.HasRecord(ctx, "bar/1.0/amd64")
	require.NoError(t, err)
	assert.True(t, recorded)

	assert.Equal(t, 1, exp.calls)
}

func TestRun_UnknownSuite(t *testing.T) {
	e, _, _ := newTestEngine(t)
	err := e.Run(context.Background(), "nonexistent", "", false)
	assert.Error(t, err)
}

func TestRun_SkipsWhenBackendUnchanged(t *testing.T) {
	e, idx, exp := newTestEngine(t)
	ctx := context.Background()
	idx.pkgs = []model.Package{&fakePkg{name: "foo", arch: "amd64", contents: []string{"/usr/bin/foo"}}}
	e.backend = idx

	require.NoError(t, e.Run(ctx, "stable", "", false))
	require.NoError(t, e.Run(ctx, "stable", "", false))
	assert.Equal(t, 1, exp.calls)
}

func TestProcessInjected_NoExtraMetainfoDirIsNoop(t *testing.T) {
	e, _, _ := newTestEngine(t)
	suite := model.Suite{Name: "stable"}
	require.NoError(t, e.processInjected(context.Background(), suite, "amd64"))
}

func TestProcessInjected_ReadsXMLFiles(t *testing.T) {
	e, _, _ := newTestEngine(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "org.example.Bar.xml"), []byte(fakeMetainfo), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not xml"), 0o644))

	suite := model.Suite{Name: "stable", ExtraMetainfoDir: dir}
	require.NoError(t, e.processInjected(context.Background(), suite, "amd64"))

	recorded, err := e.data.HasRecord(context.Background(), model.Pkid("_asgen-injected", "0", "amd64"))
	require.NoError(t, err)
	assert.True(t, recorded)
}

func TestCleanup_DropsStalePackages(t *testing.T) {
	e, idx, _ := newTestEngine(t)
	ctx := context.Background()

	idx.pkgs = []model.Package{&fakePkg{name: "keep", arch: "amd64", contents: []string{"/usr/bin/keep"}}}
	e.backend = idx
	require.NoError(t, e.contents.AddContents(ctx, "stale/1.0/amd64", []string{"/usr/bin/stale"}))
	require.NoError(t, e.data.SetPackageIgnore(ctx, "stale/1.0/amd64"))

	require.NoError(t, e.Run(ctx, "stable", "", true))
	require.NoError(t, e.Cleanup(ctx))

	pkids, err := e.contents.AllPkids(ctx)
	require.NoError(t, err)
	assert.NotContains(t, pkids, "stale/1.0/amd64")
	assert.Contains(t, pkids, "keep/1.0/amd64")
}

func TestChunkSize(t *testing.T) {
	assert.Equal(t, 10, chunkSize(50, 4))
	assert.Equal(t, 100, chunkSize(100000, 1))
	assert.Equal(t, 10, chunkSize(0, 4))
}

func TestChunks(t *testing.T) {
	pkgs := make([]model.Package, 25)
	for i := range pkgs {
		pkgs[i] = &fakePkg{name: "p", arch: "amd64"}
	}
	batches := chunks(pkgs, 10)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 10)
	assert.Len(t, batches[2], 5)
}
