package exporter

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/datastore"
	"github.com/asgen-go/asgen/internal/hints"
	"github.com/asgen-go/asgen/internal/model"
)

type fakePkg struct {
	name string
	arch string
}

func (p *fakePkg) Name() string                  { return p.name }
func (p *fakePkg) Version() string               { return "1.0" }
func (p *fakePkg) Arch() string                  { return p.arch }
func (p *fakePkg) Maintainer() string            { return "" }
func (p *fakePkg) Kind() model.PackageKind       { return model.PackageReal }
func (p *fakePkg) Pkid() string                  { return model.Pkid(p.name, "1.0", p.arch) }
func (p *fakePkg) Summary() map[string]string    { return nil }
func (p *fakePkg) Description() map[string]string { return nil }
func (p *fakePkg) Contents() []string            { return nil }
func (p *fakePkg) Gst() *model.GstInfo           { return nil }
func (p *fakePkg) Finish()                       {}
func (p *fakePkg) GetFileData(path string) ([]byte, error) {
	return nil, os.ErrNotExist
}

func newTestConfig(t *testing.T, workDir string) *appconfig.Config {
	t.Helper()
	cfg := appconfig.NewConfig()
	cfg.WorkspaceDir = workDir
	cfg.ProjectName = "TestOS"
	cfg.MediaBaseUrl = "https://example.org/media"
	cfg.Icons = map[string]appconfig.IconSizeRule{
		"64x64": {Cached: true},
	}
	return cfg
}

func setupStore(t *testing.T, cfg *appconfig.Config, pkg *fakePkg) *datastore.Store {
	t.Helper()
	dbPath := filepath.Join(cfg.WorkspaceDir, "cache.db")
	store, err := datastore.Open(dbPath, cfg.MetadataType)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	comp := &model.Component{ID: "org.example.Foo", Kind: model.KindDesktopApp, Name: map[string]string{"C": "Foo"}}
	result := model.NewGeneratorResult(pkg)
	result.AddComponent(comp)
	gcid := model.ComputeGCID(comp.ID, []byte("seed"))
	result.SetGCID(comp.ID, gcid)
	result.AddHint(hints.New(), "general", "no-metainfo", nil)
	result.Finalize()

	require.NoError(t, store.AddGeneratorResult(context.Background(), result, false))
	return store
}

func TestExporterExportWritesCatalogHintsAndIndex(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestConfig(t, dir)
	pkg := &fakePkg{name: "foo", arch: "amd64"}
	store := setupStore(t, cfg, pkg)

	reg := hints.New()
	reg.RegisterDynamic("no-metainfo", hints.SeverityInfo)

	exp := New(cfg, store, reg)
	suite := model.Suite{Name: "stable", DataPriority: 10}

	err := exp.Export(context.Background(), suite, "main", "amd64", []model.Package{pkg})
	require.NoError(t, err)

	dataDir := filepath.Join(cfg.ExportDataDir(), "stable", "main")
	hintsDir := filepath.Join(cfg.ExportHintsDir(), "stable", "main")

	catalogGz := filepath.Join(dataDir, "Components-amd64.xml.gz")
	assert.FileExists(t, catalogGz)
	body := readGzip(t, catalogGz)
	assert.Contains(t, body, `origin="TestOS-stable-main"`)
	assert.Contains(t, body, `priority="10"`)
	assert.Contains(t, body, "org.example.Foo")

	hintsGz := filepath.Join(hintsDir, "Hints-amd64.json.gz")
	assert.FileExists(t, hintsGz)
	hintsBody := readGzip(t, hintsGz)
	var entries []packageHints
	require.NoError(t, json.Unmarshal([]byte(hintsBody), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, pkg.Pkid(), entries[0].Package)
	assert.Contains(t, entries[0].Hints, "general")

	cidIndexPath := filepath.Join(dataDir, "CID-Index-amd64.json.gz")
	assert.FileExists(t, cidIndexPath)
	cidBody := readGzip(t, cidIndexPath)
	var cidIndex map[string]string
	require.NoError(t, json.Unmarshal([]byte(cidBody), &cidIndex))
	assert.Contains(t, cidIndex, "org.example.Foo")

	assert.FileExists(t, filepath.Join(cfg.ExportHintsDir(), "stable", "hint-definitions.json"))
}

func TestExporterExportSkipsMissingIcons(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestConfig(t, dir)
	pkg := &fakePkg{name: "foo", arch: "amd64"}
	store := setupStore(t, cfg, pkg)

	exp := New(cfg, store, hints.New())
	suite := model.Suite{Name: "stable"}

	err := exp.Export(context.Background(), suite, "main", "amd64", []model.Package{pkg})
	require.NoError(t, err)

	dataDir := filepath.Join(cfg.ExportDataDir(), "stable", "main")
	assert.NoFileExists(t, filepath.Join(dataDir, "icons-64x64.tar.gz"))
}

func TestExporterPinsMediaForImmutableSuites(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestConfig(t, dir)
	cfg.Features.ImmutableSuites = true
	pkg := &fakePkg{name: "foo", arch: "amd64"}
	store := setupStore(t, cfg, pkg)

	ctx := context.Background()
	gcids, err := store.GetGCIDsForPackage(ctx, pkg.Pkid())
	require.NoError(t, err)
	require.Len(t, gcids, 1)

	poolDir := filepath.Join(cfg.ExportMediaDir(), "pool", gcids[0])
	require.NoError(t, os.MkdirAll(poolDir, 0o755))

	exp := New(cfg, store, hints.New())
	suite := model.Suite{Name: "stable", Immutable: true}

	require.NoError(t, exp.Export(ctx, suite, "main", "amd64", []model.Package{pkg}))

	pinned := filepath.Join(cfg.ExportMediaDir(), "stable", gcids[0])
	info, err := os.Lstat(pinned)
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0)
}

func readGzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(data)
}
