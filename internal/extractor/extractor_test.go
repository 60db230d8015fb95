package extractor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/hints"
	"github.com/asgen-go/asgen/internal/model"
)

const sampleMetainfo = `<?xml version="1.0" encoding="UTF-8"?>
<component type="desktop-app">
  <id>org.example.Foo</id>
  <name>Foo</name>
  <summary>A foo app</summary>
  <categories><category>Utility</category></categories>
  <launchable type="desktop-id">org.example.Foo.desktop</launchable>
</component>
`

const sampleDesktop = `[Desktop Entry]
Type=Application
Name=Foo
Comment=A foo app
Icon=foo
Categories=Utility;
`

type fakePkg struct {
	name     string
	version  string
	contents []string
	files    map[string][]byte
	gst      *model.GstInfo
}

func (p *fakePkg) Name() string                  { return p.name }
func (p *fakePkg) Version() string                { return p.version }
func (p *fakePkg) Arch() string                   { return "amd64" }
func (p *fakePkg) Maintainer() string             { return "" }
func (p *fakePkg) Kind() model.PackageKind        { return model.PackageReal }
func (p *fakePkg) Pkid() string                   { return model.Pkid(p.name, p.version, "amd64") }
func (p *fakePkg) Summary() map[string]string     { return map[string]string{"C": "package summary"} }
func (p *fakePkg) Description() map[string]string { return nil }
func (p *fakePkg) Contents() []string             { return p.contents }
func (p *fakePkg) Gst() *model.GstInfo            { return p.gst }
func (p *fakePkg) Finish()                        {}

func (p *fakePkg) GetFileData(path string) ([]byte, error) {
	data, ok := p.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return data, nil
}

func newConfig() *appconfig.Config {
	cfg := appconfig.NewConfig()
	cfg.Features.ValidateMetainfo = true
	cfg.Features.ProcessDesktop = true
	cfg.Features.ProcessGStreamer = true
	return cfg
}

func TestProcess_MetainfoMergesDesktopFile(t *testing.T) {
	pkg := &fakePkg{
		name: "foo", version: "1.0",
		contents: []string{
			"/usr/share/metainfo/org.example.Foo.metainfo.xml",
			"/usr/share/applications/org.example.Foo.desktop",
		},
		files: map[string][]byte{
			"/usr/share/metainfo/org.example.Foo.metainfo.xml": []byte(sampleMetainfo),
			"/usr/share/applications/org.example.Foo.desktop":  []byte(sampleDesktop),
		},
	}

	e := New(newConfig(), hints.New(), nil)
	result := e.Process(context.Background(), pkg)

	require.False(t, result.UnitIgnored)
	comps := result.Components()
	require.Len(t, comps, 1)
	c := comps[0]
	assert.Equal(t, "org.example.Foo", c.ID)
	assert.Equal(t, "Utility", c.Categories[0])
	require.Len(t, c.Icons, 1)
	assert.Equal(t, "foo", c.Icons[0].Name)

	gcid, ok := result.GCID(c.ID)
	require.True(t, ok)
	assert.NotEmpty(t, gcid)
}

func TestProcess_MissingLaunchableDesktopFileEmitsHint(t *testing.T) {
	pkg := &fakePkg{
		name: "foo", version: "1.0",
		contents: []string{"/usr/share/metainfo/org.example.Foo.metainfo.xml"},
		files: map[string][]byte{
			"/usr/share/metainfo/org.example.Foo.metainfo.xml": []byte(sampleMetainfo),
		},
	}

	e := New(newConfig(), hints.New(), nil)
	result := e.Process(context.Background(), pkg)

	// No icon and no resolvable desktop file: component gets dropped for
	// lacking a required icon, after first recording both hints.
	assert.Empty(t, result.Components())
	found := false
	for _, h := range result.HintsFor("org.example.Foo") {
		if h.Tag == "missing-launchable-desktop-file" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestProcess_LegacyAppdataDirectoryEmitsHint(t *testing.T) {
	pkg := &fakePkg{
		name: "foo", version: "1.0",
		contents: []string{"/usr/share/appdata/org.example.Foo.appdata.xml"},
		files: map[string][]byte{
			"/usr/share/appdata/org.example.Foo.appdata.xml": []byte(sampleMetainfo),
		},
	}

	e := New(newConfig(), hints.New(), nil)
	result := e.Process(context.Background(), pkg)

	found := false
	for _, h := range result.HintsFor("general") {
		if h.Tag == "legacy-metainfo-directory" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestProcess_OrphanDesktopFileBecomesComponent(t *testing.T) {
	pkg := &fakePkg{
		name: "foo", version: "1.0",
		contents: []string{"/usr/share/applications/org.example.Foo.desktop"},
		files: map[string][]byte{
			"/usr/share/applications/org.example.Foo.desktop": []byte(sampleDesktop),
		},
	}

	e := New(newConfig(), hints.New(), nil)
	result := e.Process(context.Background(), pkg)

	comps := result.Components()
	require.Len(t, comps, 1)
	assert.Equal(t, "org.example.Foo", comps[0].ID)
	assert.Equal(t, model.KindDesktopApp, comps[0].Kind)
}

func TestProcess_NoDisplayDesktopFileIsSkipped(t *testing.T) {
	pkg := &fakePkg{
		name: "foo", version: "1.0",
		contents: []string{"/usr/share/applications/org.example.Foo.desktop"},
		files: map[string][]byte{
			"/usr/share/applications/org.example.Foo.desktop": []byte(sampleDesktop + "NoDisplay=true\n"),
		},
	}

	e := New(newConfig(), hints.New(), nil)
	result := e.Process(context.Background(), pkg)

	assert.Empty(t, result.Components())
	assert.True(t, result.UnitIgnored)
}

func TestProcess_GStreamerCodecSynthesis(t *testing.T) {
	pkg := &fakePkg{
		name: "gst-plugin-foo", version: "2.0",
		gst: &model.GstInfo{Decoders: []string{"video/x-h264"}},
	}

	e := New(newConfig(), hints.New(), nil)
	result := e.Process(context.Background(), pkg)

	comps := result.Components()
	require.Len(t, comps, 1)
	assert.Equal(t, "gst-plugin-foo.codec", comps[0].ID)
	assert.Equal(t, model.KindCodec, comps[0].Kind)
}

func TestProcess_DuplicateIDHintViaExistingPackageLookup(t *testing.T) {
	pkg := &fakePkg{
		name: "foo", version: "1.0",
		contents: []string{
			"/usr/share/metainfo/org.example.Foo.metainfo.xml",
			"/usr/share/applications/org.example.Foo.desktop",
		},
		files: map[string][]byte{
			"/usr/share/metainfo/org.example.Foo.metainfo.xml": []byte(sampleMetainfo),
			"/usr/share/applications/org.example.Foo.desktop":  []byte(sampleDesktop),
		},
	}

	e := New(newConfig(), hints.New(), nil)
	e.ExistingPackageForCID = func(cid string) (string, bool) {
		return "some-other-pkg", true
	}
	result := e.Process(context.Background(), pkg)

	found := false
	for _, h := range result.HintsFor("org.example.Foo") {
		if h.Tag == "metainfo-duplicate-id" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestProcess_EmptyPackageIsUnitIgnored(t *testing.T) {
	pkg := &fakePkg{name: "foo", version: "1.0"}

	e := New(newConfig(), hints.New(), nil)
	result := e.Process(context.Background(), pkg)

	assert.True(t, result.UnitIgnored)
	assert.Empty(t, result.Components())
}
