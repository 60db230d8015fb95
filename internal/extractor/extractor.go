// Package extractor implements DataExtractor: turning one Package's file
// list into zero or more Components (spec §4.5). It walks contents for
// metainfo XML and .desktop files, merges the two, forwards validation
// issues as hints, synthesizes GStreamer codec components, and applies the
// minimum-validation drop rules before handing a finished GeneratorResult
// back to the engine.
package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/hints"
	"github.com/asgen-go/asgen/internal/iconhandler"
	"github.com/asgen-go/asgen/internal/model"
)

const generalID = "general"

// Extractor processes one Package at a time. It holds no per-package state
// between calls to Process; everything extracted lives in the returned
// GeneratorResult.
type Extractor struct {
	cfg         *appconfig.Config
	reg         *hints.Registry
	iconHandler *iconhandler.Handler

	// IconTheme is the suite's configured icon theme name, consulted by
	// the icon handler's theme search order. The engine sets this per
	// suite before calling Process.
	IconTheme string

	// ExistingPackageForCID, if set, looks up the package name currently
	// associated with a cid in the datastore, used for the
	// metainfo-duplicate-id pre-check (spec §4.5). A nil func skips the
	// check, which is the correct behavior for a first run against an
	// empty store.
	ExistingPackageForCID func(cid string) (pkgName string, ok bool)
}

// New builds an Extractor bound to a registry and icon handler. iconHandler
// may be nil, in which case icon processing is skipped entirely (used by
// tests that only care about component/hint extraction).
func New(cfg *appconfig.Config, reg *hints.Registry, iconHandler *iconhandler.Handler) *Extractor {
	return &Extractor{cfg: cfg, reg: reg, iconHandler: iconHandler}
}

// Process extracts every component asgen can find in pkg and returns the
// finished result: components merged with their desktop files, GCIDs
// computed, icons processed, minimum-validation failures dropped, and
// UnitIgnored set if nothing at all came out of the package.
func (e *Extractor) Process(ctx context.Context, pkg model.Package) *model.GeneratorResult {
	result := model.NewGeneratorResult(pkg)
	contents := pkg.Contents()

	metainfoFiles, desktopFiles, legacyDir := partitionContents(contents)
	if legacyDir {
		result.AddHint(e.reg, generalID, "legacy-metainfo-directory", nil)
	}

	usedDesktopIDs := make(map[string]bool)
	for _, path := range metainfoFiles {
		e.processMetainfoFile(ctx, pkg, result, path, desktopFiles, usedDesktopIDs)
	}

	if e.cfg != nil && e.cfg.Features.ProcessDesktop {
		for _, path := range desktopFiles {
			if usedDesktopIDs[filepath.Base(path)] {
				continue
			}
			e.processOrphanDesktopFile(ctx, pkg, result, path)
		}
	}

	if e.cfg != nil && e.cfg.Features.ProcessGStreamer {
		e.synthesizeGstComponent(pkg, result)
	}

	e.finalize(result)
	result.Finalize()

	if len(result.Components()) == 0 && !result.HasHints() {
		result.UnitIgnored = true
	}
	return result
}

// processMetainfoFile parses one metainfo XML file, merges its declared
// desktop-id launchable (if any), computes the component's GCID, and hands
// it to the icon handler.
func (e *Extractor) processMetainfoFile(ctx context.Context, pkg model.Package, result *model.GeneratorResult, path string, desktopFiles []string, usedDesktopIDs map[string]bool) {
	data, err := pkg.GetFileData(path)
	if err != nil {
		result.AddHint(e.reg, generalID, "metainfo-read-error", map[string]string{"fname": path})
		return
	}
	c, err := ParseMetainfo(data)
	if err != nil {
		result.AddHint(e.reg, generalID, "metainfo-parsing-error", map[string]string{"fname": path})
		return
	}
	c.PkgName = pkg.Name()
	c.MixSeed([]byte(pkg.Version()))

	if e.cfg != nil && e.cfg.Features.ValidateMetainfo {
		for _, issue := range ValidateMetainfo(c) {
			sev := issue.Severity
			if sev == hints.SeverityError {
				sev = hints.SeverityWarning
			}
			tag := "asv-" + issue.Tag
			e.reg.RegisterDynamic(tag, sev)
			result.AddHint(e.reg, c.ID, tag, nil)
		}
	}

	if c.Kind != model.KindWebApp && e.ExistingPackageForCID != nil {
		if existingPkg, ok := e.ExistingPackageForCID(c.ID); ok && existingPkg != pkg.Name() {
			result.AddHint(e.reg, c.ID, "metainfo-duplicate-id", map[string]string{"cid": c.ID, "pkgname": existingPkg})
		}
	}

	result.AddComponent(c)

	if c.Kind.Installable() {
		e.mergeLaunchables(pkg, result, c, desktopFiles, usedDesktopIDs)
	}

	gcid := model.ComputeGCID(c.ID, c.SeedBytes())
	result.SetGCID(c.ID, gcid)

	if e.iconHandler != nil {
		e.iconHandler.Process(ctx, e.reg, result, c, e.IconTheme, gcid)
	}
}

// mergeLaunchables resolves each desktop-id launchable against the
// package's .desktop files. Only the first resolvable one is merged into
// the component; any further launchables are only checked for existence
// (spec §4.5). A desktop-app with no icon after this pass falls back to
// looking up a .desktop file named after its cid.
func (e *Extractor) mergeLaunchables(pkg model.Package, result *model.GeneratorResult, c *model.Component, desktopFiles []string, usedDesktopIDs map[string]bool) {
	merged := false
	for _, l := range c.Launchables {
		if l.Kind != "desktop-id" {
			continue
		}
		path := findDesktopFileByID(desktopFiles, l.Value)
		if path == "" {
			result.AddHint(e.reg, c.ID, "missing-launchable-desktop-file", map[string]string{"desktop-id": l.Value})
			continue
		}
		if merged {
			continue
		}
		data, err := pkg.GetFileData(path)
		if err != nil {
			result.AddHint(e.reg, c.ID, "missing-launchable-desktop-file", map[string]string{"desktop-id": l.Value})
			continue
		}
		entry, err := ParseDesktopFile(data)
		if err != nil {
			result.AddHint(e.reg, c.ID, "missing-launchable-desktop-file", map[string]string{"desktop-id": l.Value})
			continue
		}
		mergeDesktopEntry(c, entry, data)
		usedDesktopIDs[filepath.Base(path)] = true
		merged = true
	}

	if c.Kind == model.KindDesktopApp && !hasIcon(c) {
		path := findDesktopFileByBasename(desktopFiles, c.ID)
		if path == "" {
			result.AddHint(e.reg, c.ID, "missing-desktop-file", nil)
			return
		}
		if usedDesktopIDs[filepath.Base(path)] {
			return
		}
		data, err := pkg.GetFileData(path)
		if err != nil {
			return
		}
		entry, err := ParseDesktopFile(data)
		if err != nil {
			return
		}
		mergeDesktopEntry(c, entry, data)
		usedDesktopIDs[filepath.Base(path)] = true
	}
}

// processOrphanDesktopFile builds a standalone component from a .desktop
// file that no metainfo file claimed as its launchable.
func (e *Extractor) processOrphanDesktopFile(ctx context.Context, pkg model.Package, result *model.GeneratorResult, path string) {
	data, err := pkg.GetFileData(path)
	if err != nil {
		return
	}
	entry, err := ParseDesktopFile(data)
	if err != nil {
		result.AddHint(e.reg, generalID, "desktop-file-error", map[string]string{"fname": path})
		return
	}
	if entry.NoDisplay {
		return
	}

	cid := strings.TrimSuffix(filepath.Base(path), ".desktop")
	c := &model.Component{
		ID:         cid,
		Kind:       model.KindDesktopApp,
		PkgName:    pkg.Name(),
		Name:       entry.Name,
		Summary:    entry.Comment,
		Categories: entry.Categories,
		Launchables: []model.Launchable{
			{Kind: "desktop-id", Value: filepath.Base(path)},
		},
	}
	if entry.Icon != "" {
		c.Icons = []model.Icon{{Kind: model.IconKindStock, Name: entry.Icon}}
	}
	c.MixSeed(data)
	c.MixSeed([]byte(pkg.Version()))

	result.AddComponent(c)
	gcid := model.ComputeGCID(c.ID, c.SeedBytes())
	result.SetGCID(c.ID, gcid)

	if e.iconHandler != nil {
		e.iconHandler.Process(ctx, e.reg, result, c, e.IconTheme, gcid)
	}
}

// synthesizeGstComponent builds a codec component from a package's
// GStreamer capability metadata, mixing the decoder/encoder/element
// strings into its GCID seed so the component's checksum changes whenever
// the package's codec surface does (spec §4.5).
func (e *Extractor) synthesizeGstComponent(pkg model.Package, result *model.GeneratorResult) {
	gst := pkg.Gst()
	if gst == nil {
		return
	}
	total := len(gst.Elements) + len(gst.Decoders) + len(gst.Encoders) + len(gst.URISources) + len(gst.URISinks)
	if total == 0 {
		return
	}

	cid := pkg.Name() + ".codec"
	c := &model.Component{
		ID:      cid,
		Kind:    model.KindCodec,
		PkgName: pkg.Name(),
		Name:    map[string]string{"C": pkg.Name()},
		Summary: pkg.Summary(),
	}

	var parts []string
	parts = append(parts, gst.Elements...)
	parts = append(parts, gst.Decoders...)
	parts = append(parts, gst.Encoders...)
	parts = append(parts, gst.URISources...)
	parts = append(parts, gst.URISinks...)

	c.MixSeed([]byte(pkg.Version()))
	c.MixSeed([]byte(strings.Join(parts, ",")))

	result.AddComponent(c)
	gcid := model.ComputeGCID(c.ID, c.SeedBytes())
	result.SetGCID(c.ID, gcid)
}

// finalize applies the minimum-validation drop rules: components missing a
// name, a summary, an install candidate, a required category, or a
// required icon are removed with the matching hint recorded first.
func (e *Extractor) finalize(result *model.GeneratorResult) {
	for _, c := range result.Components() {
		if !e.passesMinimumValidation(result, c) {
			continue
		}
		e.filterCustomKeys(c)
	}
}

func (e *Extractor) passesMinimumValidation(result *model.GeneratorResult, c *model.Component) bool {
	drop := func(tag string) bool {
		result.AddHint(e.reg, c.ID, tag, nil)
		result.RemoveComponent(c.ID)
		return false
	}

	if c.Kind == model.KindUnknown {
		return drop("unknown-component-kind")
	}
	if len(c.Name) == 0 {
		return drop("component-name-missing")
	}
	if len(c.Summary) == 0 {
		return drop("summary-missing")
	}
	if c.Kind.Installable() && len(c.Launchables) == 0 {
		return drop("no-install-candidate")
	}
	if (c.Kind == model.KindDesktopApp || c.Kind == model.KindWebApp) && len(c.Categories) == 0 {
		return drop("no-categories")
	}
	if c.Kind.RequiresIcon() && !hasIcon(c) {
		return drop("no-icon")
	}
	return true
}

// filterCustomKeys drops any <custom/> key not present in the workspace's
// allow-set (spec §6 AllowedCustomKeys).
func (e *Extractor) filterCustomKeys(c *model.Component) {
	if e.cfg == nil || len(c.CustomTags) == 0 {
		return
	}
	for k := range c.CustomTags {
		if !e.cfg.IsCustomKeyAllowed(k) {
			delete(c.CustomTags, k)
		}
	}
}

// partitionContents classifies a package's file list into metainfo XML
// files and .desktop files, reporting whether any metainfo files were
// found under the legacy /usr/share/appdata directory.
func partitionContents(contents []string) (metainfoFiles, desktopFiles []string, legacyDir bool) {
	for _, p := range contents {
		switch {
		case strings.HasPrefix(p, "/usr/share/metainfo/") && strings.HasSuffix(p, ".xml"):
			metainfoFiles = append(metainfoFiles, p)
		case strings.HasPrefix(p, "/usr/share/appdata/") && strings.HasSuffix(p, ".xml"):
			metainfoFiles = append(metainfoFiles, p)
			legacyDir = true
		case strings.HasPrefix(p, "/usr/share/applications/") && strings.HasSuffix(p, ".desktop"):
			desktopFiles = append(desktopFiles, p)
		}
	}
	return
}

func findDesktopFileByID(desktopFiles []string, id string) string {
	for _, p := range desktopFiles {
		if filepath.Base(p) == id {
			return p
		}
	}
	return ""
}

func findDesktopFileByBasename(desktopFiles []string, cid string) string {
	candidates := []string{cid, cid + ".desktop"}
	for _, p := range desktopFiles {
		base := filepath.Base(p)
		for _, cand := range candidates {
			if base == cand {
				return p
			}
		}
	}
	return ""
}
