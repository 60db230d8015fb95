// Package iconhandler implements the icon resolution and storage pipeline
// from spec §4.4: building process-wide icon file maps from the
// ContentsStore, searching themes in the fixed order the spec names, and
// rendering/storing the resolved icon into the media pool.
package iconhandler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/contentsstore"
	"github.com/asgen-go/asgen/internal/hints"
	"github.com/asgen-go/asgen/internal/icontheme"
	"github.com/asgen-go/asgen/internal/model"
)

// defaultSourceExts is the allowed set of source icon extensions that
// storeAndAttach accepts (via isAllowedSourceExt). The theme search itself
// tries the extensions defined by the icontheme package.
var defaultSourceExts = []string{"png", "jpg", "svgz", "svg", "xpm"}

const defaultIconSize = 64
const minIconSize = 48

// Size is one requested icon size/scale pair asgen is configured to cache
// or reference remotely.
type Size struct {
	Width, Height, Scale int
	Cached, Remote        bool
}

// Handler is the IconHandler from spec §4.4.
type Handler struct {
	contents   *contentsstore.Store
	themeCache *icontheme.Cache
	cfg        *appconfig.Config
	mediaRoot  string

	iconFiles map[string]string // full icon path -> pkid

	renderer *svgRenderer

	sizes []Size

	// FileReader fetches path's bytes from the package identified by pkid
	// (spec §6 Package.GetFileData). Must be set before Process is called.
	FileReader func(pkid, path string) ([]byte, error)
}

// NewHandler builds a Handler. The package set used to construct the
// icon_files map is passed later to BuildIconFilesMap, and the suite's icon
// theme name, if any, is passed to Process.
func NewHandler(cfg *appconfig.Config, contents *contentsstore.Store, mediaRoot string) (*Handler, error) {
	themeCache, err := icontheme.NewCache(64)
	if err != nil {
		return nil, fmt.Errorf("create icon theme cache: %w", err)
	}

	sizes, err := parseSizes(cfg.Icons)
	if err != nil {
		return nil, err
	}

	return &Handler{
		contents:   contents,
		themeCache: themeCache,
		cfg:        cfg,
		mediaRoot:  mediaRoot,
		renderer:   newSVGRenderer(),
		sizes:      sizes,
	}, nil
}

func parseSizes(icons map[string]appconfig.IconSizeRule) ([]Size, error) {
	var out []Size
	for key, rule := range icons {
		w, h, scale, err := appconfig.SplitIconSize(key)
		if err != nil {
			return nil, fmt.Errorf("icon size %q: %w", key, err)
		}
		out = append(out, Size{Width: w, Height: h, Scale: scale, Cached: rule.Cached, Remote: rule.Remote})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Width != out[j].Width {
			return out[i].Width < out[j].Width
		}
		return out[i].Scale < out[j].Scale
	})
	return out, nil
}

// themeSearchOrder is the fixed order spec §4.4 specifies: hicolor first,
// then the configured theme, then the standard fallbacks.
func themeSearchOrder(configured string) []string {
	order := []string{"hicolor"}
	if configured != "" && configured != "hicolor" {
		order = append(order, configured)
	}
	for _, fallback := range []string{"Adwaita", "AdwaitaLegacy", "breeze"} {
		if fallback != configured {
			order = append(order, fallback)
		}
	}
	return order
}

// BuildIconFilesMap populates the process-wide icon_files map (path -> pkid)
// from the ContentsStore, restricted to pkids (spec §4.4).
func (h *Handler) BuildIconFilesMap(ctx context.Context, pkids []string) error {
	m, err := h.contents.GetIconFilesMap(ctx, pkids)
	if err != nil {
		return fmt.Errorf("build icon files map: %w", err)
	}
	h.iconFiles = m
	return nil
}

// resolveResult is the outcome of searching for one requested size.
type resolveResult struct {
	path string
	pkid string
	size Size
}

// Process implements process(result, component) (spec §4.4).
func (h *Handler) Process(ctx context.Context, reg *hints.Registry, result *model.GeneratorResult, c *model.Component, theme string, gcid string) {
	if len(c.Icons) == 0 {
		return
	}
	preliminary := c.Icons[0]

	if strings.HasPrefix(preliminary.Name, "/") {
		h.processAbsoluteIcon(ctx, reg, result, c, preliminary.Name, gcid)
		return
	}

	h.processLogicalIcon(ctx, reg, result, c, preliminary.Name, theme, gcid)
}

func (h *Handler) processAbsoluteIcon(ctx context.Context, reg *hints.Registry, result *model.GeneratorResult, c *model.Component, path string, gcid string) {
	data, ok := h.readIconFile(path)
	if !ok {
		result.AddHint(reg, c.ID, "icon-not-found", map[string]string{"icon_fname": path})
		return
	}
	size := defaultSizeSpec(h.sizes)
	if err := h.storeAndAttach(reg, result, c, data, filepath.Ext(path), size, gcid); err != nil {
		result.AddHint(reg, c.ID, "icon-write-error", map[string]string{"icon_fname": path, "error": err.Error()})
	}
}

func (h *Handler) processLogicalIcon(ctx context.Context, reg *hints.Registry, result *model.GeneratorResult, c *model.Component, iconName string, theme string, gcid string) {
	iconName = strings.TrimSuffix(iconName, filepath.Ext(iconName))

	found := map[string]resolveResult{}
	var largestFound *resolveResult

	for _, size := range h.sizes {
		res, ok := h.searchSize(iconName, size, theme, c.PkgName)
		if ok {
			key := sizeKey(size)
			found[key] = res
			if largestFound == nil || size.Width > largestFound.size.Width {
				r := res
				largestFound = &r
			}
			continue
		}

		if downscaled := h.tryDownscaleFrom(found, size); downscaled != nil {
			found[sizeKey(size)] = *downscaled
			continue
		}

		if size.Width == defaultIconSize && h.cfg.Features.AllowIconUpscaling && largestFound != nil && largestFound.size.Width >= minIconSize {
			upscaled := *largestFound
			upscaled.size = size
			found[sizeKey(size)] = upscaled
			result.AddHint(reg, c.ID, "icon-scaled-up", map[string]string{"icon_fname": upscaled.path})
		}
	}

	if _, ok := found[sizeKey(defaultSizeSpec(h.sizes))]; !ok && largestFound != nil {
		downscaled := *largestFound
		downscaled.size = defaultSizeSpec(h.sizes)
		found[sizeKey(downscaled.size)] = downscaled
	}

	if len(found) == 0 {
		result.AddHint(reg, c.ID, "icon-not-found", map[string]string{"icon_name": iconName})
		return
	}

	anyStored := false
	for _, res := range found {
		data, ok := h.readIconFile(res.path)
		if !ok {
			continue
		}
		if err := h.storeAndAttach(reg, result, c, data, filepath.Ext(res.path), res.size, gcid); err != nil {
			result.AddHint(reg, c.ID, "icon-write-error", map[string]string{"icon_fname": res.path, "error": err.Error()})
			continue
		}
		anyStored = true
	}

	if anyStored {
		c.Icons = append(c.Icons, model.Icon{Kind: model.IconKindStock, Name: iconName})
	}
}

// searchSize looks for iconName at the given size, trying the component's
// own package first, then any package, across the theme search order.
func (h *Handler) searchSize(iconName string, size Size, theme, ownPkg string) (resolveResult, bool) {
	for _, themeName := range themeSearchOrder(theme) {
		t, err := h.loadTheme(themeName)
		if err != nil || t == nil {
			continue
		}
		candidates := t.MatchingFilenames(iconName, size.Width, size.Scale, false)

		if res, ok := h.firstMatch(candidates, size, ownPkg, true); ok {
			return res, true
		}
		if res, ok := h.firstMatch(candidates, size, ownPkg, false); ok {
			return res, true
		}
	}
	return resolveResult{}, false
}

func (h *Handler) firstMatch(candidates []string, size Size, ownPkg string, restrictOwnPkg bool) (resolveResult, bool) {
	for _, path := range candidates {
		pkid, ok := h.iconFiles[path]
		if !ok {
			continue
		}
		if restrictOwnPkg && !strings.HasPrefix(pkid, ownPkg+"/") {
			continue
		}
		return resolveResult{path: path, pkid: pkid, size: size}, true
	}
	return resolveResult{}, false
}

// tryDownscaleFrom finds the smallest already-found icon at the same scale
// that is larger than size, to downscale from (spec §4.4: never upscale
// below default unless allowed).
func (h *Handler) tryDownscaleFrom(found map[string]resolveResult, size Size) *resolveResult {
	var best *resolveResult
	for _, res := range found {
		if res.size.Scale != size.Scale || res.size.Width <= size.Width {
			continue
		}
		if best == nil || res.size.Width < best.size.Width {
			r := res
			r.size = size
			best = &r
		}
	}
	return best
}

func (h *Handler) loadTheme(name string) (*icontheme.Theme, error) {
	return h.themeCache.GetOrParse(name, func() ([]byte, error) {
		path := fmt.Sprintf("/usr/share/icons/%s/index.theme", name)
		data, ok := h.readIconFile(path)
		if !ok {
			return nil, fmt.Errorf("no index.theme for %s", name)
		}
		return data, nil
	})
}

// readIconFile resolves path to its owning pkid via the icon_files map and
// fetches its bytes through FileReader, which the engine wires to the
// owning Package.GetFileData (spec §6) keyed by pkid.
func (h *Handler) readIconFile(path string) ([]byte, bool) {
	pkid, ok := h.iconFiles[path]
	if !ok || h.FileReader == nil {
		return nil, false
	}
	data, err := h.FileReader(pkid, path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// storeAndAttach implements storeIcon (spec §4.4 steps 3-6) and attaches
// the resulting icon reference to the component.
func (h *Handler) storeAndAttach(reg *hints.Registry, result *model.GeneratorResult, c *model.Component, data []byte, ext string, size Size, gcid string) error {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if !isAllowedSourceExt(ext) {
		return fmt.Errorf("icon source extension %q is not one of %v", ext, defaultSourceExts)
	}

	img, sourceW, sourceH, err := h.decodeIcon(data, ext, size)
	if err != nil {
		return err
	}

	if size.Width == defaultIconSize && (sourceW < minIconSize || sourceH < minIconSize) {
		result.AddHint(reg, c.ID, "icon-too-small", map[string]string{
			"icon_fname": fmt.Sprintf("%dx%d", sourceW, sourceH),
		})
		return nil
	}

	resized := resizeRGBA(img, size.Width*size.Scale, size.Height*size.Scale)

	filename := fmt.Sprintf("%s.png", c.ID)
	sizeDir := formatSizeDir(size)
	relPath := filepath.Join("icons", sizeDir, filename)
	fullPath := filepath.Join(h.mediaRoot, gcid, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create icon dir: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create icon file: %w", err)
	}
	defer f.Close()

	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
	if h.cfg.Features.OptimizePNGSize {
		enc.CompressionLevel = png.BestCompression
	}
	if err := enc.Encode(f, resized); err != nil {
		return fmt.Errorf("encode icon png: %w", err)
	}

	urlPath := filepath.ToSlash(filepath.Join(gcid, relPath))

	if size.Cached {
		c.Icons = append(c.Icons, model.Icon{
			Kind: model.IconKindCached, Name: filename,
			Width: size.Width, Height: size.Height, Scale: size.Scale,
		})
	}
	if size.Remote {
		c.Icons = append(c.Icons, model.Icon{
			Kind: model.IconKindRemote, Name: filename,
			Width: size.Width, Height: size.Height, Scale: size.Scale,
			URL: urlPath,
		})
	}
	return nil
}

func (h *Handler) decodeIcon(data []byte, ext string, size Size) (image.Image, int, int, error) {
	switch ext {
	case "svg", "svgz":
		if !h.renderer.Available() {
			return nil, 0, 0, errRendererUnavailable
		}
		img, err := h.renderer.RenderToRGBA(data, size.Width*size.Scale, size.Height*size.Scale)
		if err != nil {
			return nil, 0, 0, err
		}
		b := img.Bounds()
		return img, b.Dx(), b.Dy(), nil
	case "xpm":
		// XPM is a legacy text-based format; spec §4.4 only requires we
		// recognize it and enforce the minimum size, not fully decode it.
		return nil, 0, 0, fmt.Errorf("xpm icon decoding is not supported")
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			// jpeg/png decoders are already registered by their package
			// imports at the top of this file; surface the underlying error.
			return nil, 0, 0, fmt.Errorf("decode icon: %w", err)
		}
		b := img.Bounds()
		return img, b.Dx(), b.Dy(), nil
	}
}

func resizeRGBA(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func defaultSizeSpec(sizes []Size) Size {
	for _, s := range sizes {
		if s.Width == defaultIconSize && s.Scale == 1 {
			return s
		}
	}
	return Size{Width: defaultIconSize, Height: defaultIconSize, Scale: 1, Cached: true}
}

func sizeKey(s Size) string {
	return strconv.Itoa(s.Width) + "x" + strconv.Itoa(s.Height) + "@" + strconv.Itoa(s.Scale)
}

func isAllowedSourceExt(ext string) bool {
	for _, allowed := range defaultSourceExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

func formatSizeDir(s Size) string {
	if s.Scale <= 1 {
		return fmt.Sprintf("%dx%d", s.Width, s.Height)
	}
	return fmt.Sprintf("%dx%d@%d", s.Width, s.Height, s.Scale)
}
