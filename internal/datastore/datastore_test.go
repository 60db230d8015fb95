package datastore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/hints"
	"github.com/asgen-go/asgen/internal/model"
)

type fakePkg struct {
	pkid string
}

func (p *fakePkg) Name() string                       { return "foo" }
func (p *fakePkg) Version() string                    { return "1.0" }
func (p *fakePkg) Arch() string                       { return "amd64" }
func (p *fakePkg) Maintainer() string                 { return "" }
func (p *fakePkg) Kind() model.PackageKind             { return model.PackageReal }
func (p *fakePkg) Pkid() string                        { return p.pkid }
func (p *fakePkg) Summary() map[string]string          { return nil }
func (p *fakePkg) Description() map[string]string      { return nil }
func (p *fakePkg) Contents() []string                  { return nil }
func (p *fakePkg) GetFileData(string) ([]byte, error)   { return nil, nil }
func (p *fakePkg) Gst() *model.GstInfo                  { return nil }
func (p *fakePkg) Finish()                              {}

func openTestStore(t *testing.T, mtype appconfig.MetadataType) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	s, err := Open(path, mtype)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newResult(pkid string) *model.GeneratorResult {
	return model.NewGeneratorResult(&fakePkg{pkid: pkid})
}

func TestAddGeneratorResult_UnitIgnored(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	ctx := context.Background()

	r := newResult("foo/1.0/amd64")
	r.UnitIgnored = true

	require.NoError(t, s.AddGeneratorResult(ctx, r, false))

	ignored, err := s.IsIgnored(ctx, "foo/1.0/amd64")
	require.NoError(t, err)
	assert.True(t, ignored)

	gcids, err := s.GetGCIDsForPackage(ctx, "foo/1.0/amd64")
	require.NoError(t, err)
	assert.Empty(t, gcids)
}

func TestAddGeneratorResult_WritesMetadataAndGCIDs(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	ctx := context.Background()

	r := newResult("foo/1.0/amd64")
	c := &model.Component{
		ID:      "org.example.foo",
		Kind:    model.KindDesktopApp,
		Name:    map[string]string{"C": "Foo"},
		Summary: map[string]string{"C": "A foo app"},
		PkgName: "foo",
	}
	r.AddComponent(c)
	gcid := model.ComputeGCID(c.ID, []byte("seed"))
	r.SetGCID(c.ID, gcid)

	require.NoError(t, s.AddGeneratorResult(ctx, r, false))

	exists, err := s.MetadataExists(ctx, appconfig.MetadataXML, gcid)
	require.NoError(t, err)
	assert.True(t, exists)

	gcids, err := s.GetGCIDsForPackage(ctx, "foo/1.0/amd64")
	require.NoError(t, err)
	assert.Equal(t, []string{gcid}, gcids)
}

func TestAddGeneratorResult_SkipsReserializeUnlessForced(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataYAML)
	ctx := context.Background()

	r := newResult("foo/1.0/amd64")
	c := &model.Component{ID: "org.example.foo", Kind: model.KindDesktopApp, Name: map[string]string{"C": "Foo"}}
	r.AddComponent(c)
	gcid := model.ComputeGCID(c.ID, []byte("seed"))
	r.SetGCID(c.ID, gcid)
	require.NoError(t, s.AddGeneratorResult(ctx, r, false))

	// Second result with the same GCID but a different name; without
	// alwaysRegenerate the cached document must not change.
	r2 := newResult("foo/1.0/amd64")
	c2 := &model.Component{ID: "org.example.foo", Kind: model.KindDesktopApp, Name: map[string]string{"C": "Changed"}}
	r2.AddComponent(c2)
	r2.SetGCID(c2.ID, gcid)
	require.NoError(t, s.AddGeneratorResult(ctx, r2, false))

	var data string
	require.NoError(t, s.db.QueryRow(`SELECT data FROM metadata_yaml WHERE gcid = ?`, gcid).Scan(&data))
	assert.Contains(t, data, "Foo")
	assert.NotContains(t, data, "Changed")
}

func TestAddGeneratorResult_WritesHints(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	ctx := context.Background()
	reg := hints.New()

	r := newResult("foo/1.0/amd64")
	c := &model.Component{ID: "org.example.foo", Kind: model.KindDesktopApp}
	r.AddComponent(c)
	r.SetGCID(c.ID, model.ComputeGCID(c.ID, []byte("x")))
	r.AddHint(reg, c.ID, "no-name", nil)

	require.NoError(t, s.AddGeneratorResult(ctx, r, false))

	var raw string
	require.NoError(t, s.db.QueryRow(`SELECT data FROM hints WHERE pkid = ?`, "foo/1.0/amd64").Scan(&raw))
	var decoded map[string][]hints.Hint
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Len(t, decoded["org.example.foo"], 1)
}

func TestGetGCIDsForPackage_MissingReturnsEmpty(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	gcids, err := s.GetGCIDsForPackage(context.Background(), "nope/1/amd64")
	require.NoError(t, err)
	assert.Empty(t, gcids)
}

func TestSetAndIsIgnored(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	ctx := context.Background()

	ignored, err := s.IsIgnored(ctx, "nope/1/amd64")
	require.NoError(t, err)
	assert.False(t, ignored)

	require.NoError(t, s.SetPackageIgnore(ctx, "foo/1.0/amd64"))
	ignored, err = s.IsIgnored(ctx, "foo/1.0/amd64")
	require.NoError(t, err)
	assert.True(t, ignored)
}

func TestRemovePackage(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	ctx := context.Background()

	require.NoError(t, s.SetPackageIgnore(ctx, "foo/1.0/amd64"))
	require.NoError(t, s.RemovePackage(ctx, "foo/1.0/amd64"))

	ignored, err := s.IsIgnored(ctx, "foo/1.0/amd64")
	require.NoError(t, err)
	assert.False(t, ignored)

	// removing an already-missing package is not an error.
	require.NoError(t, s.RemovePackage(ctx, "foo/1.0/amd64"))
}

func TestAddStatistics_UnionsOnCollidingKey(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	ctx := context.Background()

	require.NoError(t, s.AddStatistics(ctx, 1000, json.RawMessage(`["a"]`)))
	require.NoError(t, s.AddStatistics(ctx, 1000, json.RawMessage(`["b"]`)))

	var raw string
	require.NoError(t, s.db.QueryRow(`SELECT data FROM statistics WHERE ts = ?`, 1000).Scan(&raw))
	var values []string
	require.NoError(t, json.Unmarshal([]byte(raw), &values))
	assert.ElementsMatch(t, []string{"a", "b"}, values)
}

func TestGetPkidsMatching(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	ctx := context.Background()

	require.NoError(t, s.SetPackageIgnore(ctx, "foo/1.0/amd64"))
	require.NoError(t, s.SetPackageIgnore(ctx, "foo/2.0/amd64"))
	require.NoError(t, s.SetPackageIgnore(ctx, "bar/1.0/amd64"))

	pkids, err := s.GetPkidsMatching(ctx, "foo")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"foo/1.0/amd64", "foo/2.0/amd64"}, pkids)
}

func TestRepoInfo(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	ctx := context.Background()

	_, err := s.GetRepoInfo(ctx, "watermark")
	require.Error(t, err)

	require.NoError(t, s.SetRepoInfo(ctx, "watermark", "2026-07-31"))
	value, err := s.GetRepoInfo(ctx, "watermark")
	require.NoError(t, err)
	assert.Equal(t, "2026-07-31", value)
}

func TestCleanupCruft_DropsInactiveMetadataAndMedia(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	ctx := context.Background()

	r := newResult("foo/1.0/amd64")
	c := &model.Component{ID: "org.example.foo", Kind: model.KindDesktopApp}
	r.AddComponent(c)
	activeGCID := model.ComputeGCID(c.ID, []byte("active"))
	r.SetGCID(c.ID, activeGCID)
	require.NoError(t, s.AddGeneratorResult(ctx, r, false))

	staleGCID := model.ComputeGCID("org.example.stale", []byte("stale"))
	require.NoError(t, s.putMetadata(ctx, "metadata_xml", staleGCID, "<component/>"))

	mediaRoot := t.TempDir()
	for _, gcid := range []string{activeGCID, staleGCID} {
		dir := filepath.Join(mediaRoot, gcid, "icons")
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	require.NoError(t, s.CleanupCruft(ctx, mediaRoot, nil))

	exists, err := s.MetadataExists(ctx, appconfig.MetadataXML, activeGCID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.MetadataExists(ctx, appconfig.MetadataXML, staleGCID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = os.Stat(filepath.Join(mediaRoot, activeGCID))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(mediaRoot, staleGCID))
	assert.True(t, os.IsNotExist(err))
}

func TestSync(t *testing.T) {
	s := openTestStore(t, appconfig.MetadataXML)
	require.NoError(t, s.Sync())
}
