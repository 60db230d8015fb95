// Package exporter implements the Exporter (spec §4.6 steps 4-5): it reads
// cached component metadata and per-package hints back out of the
// DataStore and writes the catalog, hints, CID-index, and icon-tarball
// files the on-disk layout in spec §6 names, pinning media for immutable
// suites along the way.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/datastore"
	"github.com/asgen-go/asgen/internal/hints"
	"github.com/asgen-go/asgen/internal/model"
)

// Exporter satisfies internal/engine's Exporter interface.
type Exporter struct {
	cfg       *appconfig.Config
	data      *datastore.Store
	reg       *hints.Registry
	mediaRoot string
}

// New builds an Exporter bound to an already-open DataStore and the
// process-wide HintRegistry.
func New(cfg *appconfig.Config, data *datastore.Store, reg *hints.Registry) *Exporter {
	return &Exporter{
		cfg:       cfg,
		data:      data,
		reg:       reg,
		mediaRoot: filepath.Join(cfg.ExportMediaDir(), "pool"),
	}
}

// packageHints is one entry of the hints file's JSON array: a package's
// pkid plus its accumulated per-component (or "general") hint lists.
type packageHints struct {
	Package string                  `json:"package"`
	Hints   map[string][]hints.Hint `json:"hints"`
}

// Export implements spec §4.6 steps 4-5 for one (suite, section, arch)
// triple over the accumulated package list.
func (e *Exporter) Export(ctx context.Context, suite model.Suite, section, arch string, pkgs []model.Package) error {
	bodies, cidIndex, hintEntries, gcids, err := e.collect(ctx, pkgs)
	if err != nil {
		return err
	}

	dataDir := filepath.Join(e.cfg.ExportDataDir(), suite.Name, section)
	hintsDir := filepath.Join(e.cfg.ExportHintsDir(), suite.Name, section)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create export data dir: %w", err)
	}
	if err := os.MkdirAll(hintsDir, 0o755); err != nil {
		return fmt.Errorf("create export hints dir: %w", err)
	}

	if err := e.writeCatalog(dataDir, suite, section, arch, bodies); err != nil {
		return err
	}
	if err := e.writeHints(hintsDir, arch, hintEntries); err != nil {
		return err
	}
	if err := e.writeCIDIndex(dataDir, arch, cidIndex); err != nil {
		return err
	}
	defsPath := filepath.Join(e.cfg.ExportHintsDir(), suite.Name, "hint-definitions.json")
	if err := e.reg.SaveDefinitions(defsPath); err != nil {
		return fmt.Errorf("save hint definitions: %w", err)
	}
	if err := e.buildIconTarballs(dataDir, gcids); err != nil {
		return err
	}
	if e.cfg.Features.ImmutableSuites && suite.Immutable {
		if err := e.pinMedia(suite.Name, gcids); err != nil {
			return fmt.Errorf("pin media for suite %s: %w", suite.Name, err)
		}
	}
	return nil
}

// collect reads every package's cached GCIDs and hints out of the
// DataStore, in pkgs' order, preserving the "exported catalog order is the
// input package-list order" guarantee from spec §5.
func (e *Exporter) collect(ctx context.Context, pkgs []model.Package) (bodies []string, cidIndex map[string]string, hintEntries []packageHints, gcids []string, err error) {
	cidIndex = make(map[string]string)

	for _, pkg := range pkgs {
		pkgGcids, gerr := e.data.GetGCIDsForPackage(ctx, pkg.Pkid())
		if gerr != nil {
			return nil, nil, nil, nil, fmt.Errorf("read gcids for %s: %w", pkg.Pkid(), gerr)
		}
		for _, gcid := range pkgGcids {
			blob, ok, berr := e.data.GetMetadataBlob(ctx, gcid)
			if berr != nil {
				return nil, nil, nil, nil, fmt.Errorf("read metadata for %s: %w", gcid, berr)
			}
			if !ok {
				continue
			}
			bodies = append(bodies, blob)
			gcids = append(gcids, gcid)
			if cid, cerr := model.CidFromGCID(gcid); cerr == nil {
				cidIndex[cid] = gcid
			}
		}

		raw, ok, herr := e.data.GetHints(ctx, pkg.Pkid())
		if herr != nil {
			return nil, nil, nil, nil, fmt.Errorf("read hints for %s: %w", pkg.Pkid(), herr)
		}
		if ok {
			var byID map[string][]hints.Hint
			if err := json.Unmarshal(raw, &byID); err != nil {
				return nil, nil, nil, nil, fmt.Errorf("parse hints for %s: %w", pkg.Pkid(), err)
			}
			hintEntries = append(hintEntries, packageHints{Package: pkg.Pkid(), Hints: byID})
		}
	}
	return bodies, cidIndex, hintEntries, gcids, nil
}

func (e *Exporter) writeCatalog(dataDir string, suite model.Suite, section, arch string, bodies []string) error {
	doc := buildCatalog(e.cfg, suite, section, bodies)
	base := filepath.Join(dataDir, fmt.Sprintf("Components-%s.%s", arch, catalogExt(e.cfg)))
	return writeCompressedPair(base, []byte(doc))
}

func (e *Exporter) writeHints(hintsDir, arch string, entries []packageHints) error {
	if entries == nil {
		entries = []packageHints{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hints: %w", err)
	}
	base := filepath.Join(hintsDir, fmt.Sprintf("Hints-%s.json", arch))
	return writeCompressedPair(base, data)
}

func (e *Exporter) writeCIDIndex(dataDir, arch string, cidIndex map[string]string) error {
	data, err := json.MarshalIndent(cidIndex, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cid index: %w", err)
	}
	gz, err := gzipBytes(data)
	if err != nil {
		return fmt.Errorf("gzip cid index: %w", err)
	}
	path := filepath.Join(dataDir, fmt.Sprintf("CID-Index-%s.json.gz", arch))
	return writeFile(path, gz)
}

// buildIconTarballs builds one icons-<size>.tar.gz per configured size
// whose policy includes "cached" (spec §4.6 step 5).
func (e *Exporter) buildIconTarballs(dataDir string, gcids []string) error {
	for size, rule := range e.cfg.Icons {
		if !rule.Cached {
			continue
		}
		dest := filepath.Join(dataDir, fmt.Sprintf("icons-%s.tar.gz", size))
		if err := buildIconTarball(e.mediaRoot, gcids, size, dest); err != nil {
			return fmt.Errorf("build icon tarball %s: %w", size, err)
		}
	}
	return nil
}

// pinMedia symlinks each referenced GCID's media directory from the pool
// into export/media/<suite>/ for immutable suites (spec §4.6 step 4), so a
// published immutable suite keeps serving the media its catalog references
// even after the pool itself moves on.
func (e *Exporter) pinMedia(suiteName string, gcids []string) error {
	suiteRoot := filepath.Join(e.cfg.ExportMediaDir(), suiteName)
	seen := make(map[string]bool, len(gcids))
	for _, gcid := range gcids {
		if seen[gcid] {
			continue
		}
		seen[gcid] = true

		src := filepath.Join(e.mediaRoot, gcid)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(suiteRoot, gcid)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("create suite media dir: %w", err)
		}
		_ = os.Remove(dst)
		if err := os.Symlink(src, dst); err != nil {
			return fmt.Errorf("symlink %s: %w", dst, err)
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
