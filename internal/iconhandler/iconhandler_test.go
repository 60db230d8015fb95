package iconhandler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/contentsstore"
	"github.com/asgen-go/asgen/internal/hints"
	"github.com/asgen-go/asgen/internal/model"
)

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	cfg := appconfig.NewConfig()
	cfg.WorkspaceDir = t.TempDir()

	store := filepath.Join(t.TempDir(), "contents.db")
	cs, err := contentsstore.Open(store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	mediaRoot := t.TempDir()
	h, err := NewHandler(cfg, cs, mediaRoot)
	require.NoError(t, err)
	return h, mediaRoot
}

func TestThemeSearchOrder(t *testing.T) {
	assert.Equal(t, []string{"hicolor", "Adwaita", "AdwaitaLegacy", "breeze"}, themeSearchOrder(""))
	assert.Equal(t, []string{"hicolor", "Adwaita", "AdwaitaLegacy", "breeze"}, themeSearchOrder("hicolor"))
	assert.Equal(t, []string{"hicolor", "Papirus", "Adwaita", "AdwaitaLegacy", "breeze"}, themeSearchOrder("Papirus"))
}

func TestProcess_AbsoluteIconPath(t *testing.T) {
	h, mediaRoot := newTestHandler(t)
	ctx := context.Background()

	pngBytes := samplePNG(t, 64, 64)
	iconPath := "/opt/foo/icon.png"
	h.iconFiles = map[string]string{iconPath: "foo/1.0/amd64"}
	h.FileReader = func(pkid, path string) ([]byte, error) {
		if path == iconPath {
			return pngBytes, nil
		}
		return nil, fmt.Errorf("not found: %s", path)
	}

	reg := hints.New()
	result := model.NewGeneratorResult(nil)
	c := &model.Component{
		ID:      "org.example.foo",
		PkgName: "foo",
		Icons:   []model.Icon{{Name: iconPath}},
	}
	result.AddComponent(c)

	gcid := "o/or/org.example.foo/deadbeef"
	h.Process(ctx, reg, result, c, "", gcid)

	var cached *model.Icon
	for i := range c.Icons {
		if c.Icons[i].Kind == model.IconKindCached {
			cached = &c.Icons[i]
		}
	}
	require.NotNil(t, cached)
	assert.Equal(t, 64, cached.Width)

	writtenPath := filepath.Join(mediaRoot, gcid, "icons", "64x64", cached.Name)
	_, err := os.Stat(writtenPath)
	require.NoError(t, err)
}

func TestProcess_IconTooSmallEmitsHint(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	pngBytes := samplePNG(t, 16, 16)
	iconPath := "/opt/foo/icon.png"
	h.iconFiles = map[string]string{iconPath: "foo/1.0/amd64"}
	h.FileReader = func(pkid, path string) ([]byte, error) { return pngBytes, nil }

	reg := hints.New()
	reg.RegisterDynamic("icon-too-small", hints.SeverityWarning)
	result := model.NewGeneratorResult(nil)
	c := &model.Component{ID: "org.example.foo", PkgName: "foo", Icons: []model.Icon{{Name: iconPath}}}
	result.AddComponent(c)

	h.Process(ctx, reg, result, c, "", "o/or/org.example.foo/deadbeef")

	found := false
	for _, hint := range result.HintsFor(c.ID) {
		if hint.Tag == "icon-too-small" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestProcess_NoIconsIsNoop(t *testing.T) {
	h, _ := newTestHandler(t)
	reg := hints.New()
	result := model.NewGeneratorResult(nil)
	c := &model.Component{ID: "org.example.foo"}
	result.AddComponent(c)

	h.Process(context.Background(), reg, result, c, "", "gcid")
	assert.Empty(t, result.HintsFor(c.ID))
}

func TestIsAllowedSourceExt(t *testing.T) {
	assert.True(t, isAllowedSourceExt("png"))
	assert.True(t, isAllowedSourceExt("xpm"))
	assert.False(t, isAllowedSourceExt("bmp"))
}

func TestFormatSizeDir(t *testing.T) {
	assert.Equal(t, "64x64", formatSizeDir(Size{Width: 64, Height: 64, Scale: 1}))
	assert.Equal(t, "64x64@2", formatSizeDir(Size{Width: 64, Height: 64, Scale: 2}))
}
