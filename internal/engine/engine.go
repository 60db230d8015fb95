// Package engine implements the Engine (spec §4.6): per (suite, section,
// arch), seed contents, extract in parallel, process injected metainfo,
// export, build icon tarballs, and report; after all suites, garbage
// collect. Grounded on the teacher's orchestration style in
// internal/search (bounded parallel fan-out via errgroup) and
// internal/embed (workspace-wide file locking via gofrs/flock).
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/backend"
	"github.com/asgen-go/asgen/internal/contentsstore"
	"github.com/asgen-go/asgen/internal/datastore"
	"github.com/asgen-go/asgen/internal/extractor"
	"github.com/asgen-go/asgen/internal/hints"
	"github.com/asgen-go/asgen/internal/iconhandler"
	"github.com/asgen-go/asgen/internal/model"
)

// Exporter is the collaborator the Engine drives for spec §4.6 steps 4-5
// (catalog/hints/CID-index export, icon tarball assembly). Implemented by
// internal/exporter; declared here so the Engine does not depend on that
// package's internals, only on this narrow contract.
type Exporter interface {
	Export(ctx context.Context, suite model.Suite, section, arch string, pkgs []model.Package) error
}

// Progress is the collaborator the Engine reports coarse-grained Run
// progress to. It is purely ambient: a nil Progress never changes
// extraction semantics, and the Engine reports only at triple
// granularity, never reaching into extraction internals. Implemented by
// internal/progressui via an adapter in cmd/asgen, declared here narrowly
// so the Engine does not depend on progressui's rendering types.
type Progress interface {
	// SetCurrentTriple announces the suite/section/arch triple about to
	// be processed.
	SetCurrentTriple(triple string)
	// AddTotal increases the overall package total once a triple's
	// package list becomes known.
	AddTotal(n int)
	// Advance marks n more packages processed against the running total.
	Advance(n int)
	// Complete signals that the run finished.
	Complete()
}

// Engine coordinates one workspace's suites through a full run.
type Engine struct {
	cfg         *appconfig.Config
	contents    *contentsstore.Store
	data        *datastore.Store
	reg         *hints.Registry
	iconHandler *iconhandler.Handler
	backend     backend.PackageIndex
	exporter    Exporter
	progress    Progress

	lock *WorkspaceLock
	tmp  *tmpDir

	// ContentsParallelism bounds contents-seeding's worker count (spec §5:
	// ≤ min(30, 2·cores)). Zero selects the spec default at Run time.
	ContentsParallelism int
}

// New builds an Engine bound to an already-open ContentsStore/DataStore, a
// populated HintRegistry, and a concrete Backend and Exporter.
func New(cfg *appconfig.Config, contents *contentsstore.Store, data *datastore.Store, reg *hints.Registry, idx backend.PackageIndex, exp Exporter) (*Engine, error) {
	mediaRoot := filepath.Join(cfg.ExportMediaDir(), "pool")
	ih, err := iconhandler.NewHandler(cfg, contents, mediaRoot)
	if err != nil {
		return nil, fmt.Errorf("build icon handler: %w", err)
	}
	return &Engine{
		cfg:         cfg,
		contents:    contents,
		data:        data,
		reg:         reg,
		iconHandler: ih,
		backend:     idx,
		exporter:    exp,
		lock:        NewWorkspaceLock(cfg.LockPath()),
		tmp:         newTmpDir(cfg.TmpDir()),
	}, nil
}

// SetProgress attaches a Progress reporter. Optional; a nil reporter (the
// default) means Run reports nothing.
func (e *Engine) SetProgress(p Progress) {
	e.progress = p
}

// Run processes suiteName (every section if sectionFilter is empty, else
// just that one) across all of its configured architectures, then runs
// export and icon-tarball assembly for each (section, arch) triple.
func (e *Engine) Run(ctx context.Context, suiteName, sectionFilter string, forced bool) error {
	if err := e.lock.Lock(); err != nil {
		return err
	}
	defer func() { _ = e.lock.Unlock() }()

	def, ok := e.cfg.Suites[suiteName]
	if !ok {
		return fmt.Errorf("unknown suite %q", suiteName)
	}
	suite := model.Suite{
		Name:             suiteName,
		Sections:         def.Sections,
		Architectures:    def.Architectures,
		BaseSuite:        def.BaseSuite,
		IconTheme:        def.IconTheme,
		DataPriority:     def.DataPriority,
		Immutable:        def.Immutable,
		ExtraMetainfoDir: def.ExtraMetainfoDir,
	}

	for _, section := range suite.Sections {
		if sectionFilter != "" && section != sectionFilter {
			continue
		}
		for _, arch := range suite.Architectures {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.runTriple(ctx, suite, section, arch, forced); err != nil {
				return fmt.Errorf("%s/%s/%s: %w", suiteName, section, arch, err)
			}
		}
		slog.Info("suite section complete", slog.String("suite", suiteName), slog.String("section", section))
	}
	if e.progress != nil {
		e.progress.Complete()
	}
	return nil
}

func (e *Engine) runTriple(ctx context.Context, suite model.Suite, section, arch string, forced bool) error {
	watermarkKey := suite.Name + "-" + section + "-" + arch

	changed, mtime, err := e.backend.HasChanges(ctx, suite.Name, section, arch, e.storedMtime(ctx, watermarkKey))
	if err != nil {
		return fmt.Errorf("check backend changes: %w", err)
	}
	if !changed && !forced {
		slog.Debug("no backend changes, skipping", slog.String("triple", watermarkKey))
		return nil
	}

	pkgs, err := e.backend.PackagesFor(ctx, suite.Name, section, arch, true)
	if err != nil {
		return fmt.Errorf("list packages: %w", err)
	}
	if e.progress != nil {
		e.progress.SetCurrentTriple(watermarkKey)
		e.progress.AddTotal(len(pkgs))
	}

	if err := e.seedContents(ctx, suite, pkgs); err != nil {
		return fmt.Errorf("seed contents: %w", err)
	}

	if suite.BaseSuite == "" {
		if err := e.extract(ctx, suite, pkgs); err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		if err := e.processInjected(ctx, suite, arch); err != nil {
			return fmt.Errorf("injected metainfo: %w", err)
		}
	}
	if e.progress != nil {
		e.progress.Advance(len(pkgs))
	}

	if err := e.data.SetRepoInfo(ctx, watermarkKey, fmt.Sprintf("%d", mtime)); err != nil {
		return fmt.Errorf("update watermark: %w", err)
	}

	if e.exporter != nil && suite.BaseSuite == "" {
		if err := e.exporter.Export(ctx, suite, section, arch, pkgs); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return nil
}

func (e *Engine) storedMtime(ctx context.Context, key string) int64 {
	value, err := e.data.GetRepoInfo(ctx, key)
	if err != nil {
		return 0
	}
	var mtime int64
	_, _ = fmt.Sscanf(value, "%d", &mtime)
	return mtime
}

// seedContents implements spec §4.6 step 1: record every package's
// contents, and mark non-interesting packages ignored. Base-suite packages
// only ever reach AddContents, never extraction (the caller skips
// extract/processInjected for those). Runs with a bounded parallel degree
// since Contents() may itself be I/O-bound per package.
func (e *Engine) seedContents(ctx context.Context, suite model.Suite, pkgs []model.Package) error {
	workers := e.ContentsParallelism
	if workers < 1 {
		workers = defaultContentsParallelism()
	}

	return boundedEach(ctx, len(pkgs), workers, func(ctx context.Context, i int) error {
		pkg := pkgs[i]
		if err := e.contents.AddContents(ctx, pkg.Pkid(), pkg.Contents()); err != nil {
			return err
		}
		if suite.BaseSuite != "" {
			return nil
		}
		if isInteresting(pkg) {
			return nil
		}
		return e.data.SetPackageIgnore(ctx, pkg.Pkid())
	})
}

// isInteresting implements spec §4.6 step 1's classification: a package
// is worth extracting if it carries metainfo, a desktop launcher, legacy
// appdata, or GStreamer capability metadata.
func isInteresting(pkg model.Package) bool {
	if pkg.Gst() != nil {
		return true
	}
	for _, p := range pkg.Contents() {
		switch {
		case strings.HasPrefix(p, "/usr/share/applications/"):
			return true
		case strings.HasPrefix(p, "/usr/share/metainfo/"):
			return true
		case strings.HasPrefix(p, "/usr/share/appdata/"):
			return true
		}
	}
	return false
}

func defaultContentsParallelism() int {
	n := 2 * defaultWorkerCount()
	if n > 30 {
		n = 30
	}
	return n
}

// extract implements spec §4.6 step 2: chunk the interesting, not-yet-
// recorded packages across a bounded worker pool, each worker building
// its own extractor.Extractor and serializing DataStore writes.
func (e *Engine) extract(ctx context.Context, suite model.Suite, pkgs []model.Package) error {
	size := chunkSize(len(pkgs), defaultWorkerCount())
	return runExtraction(ctx, pkgs, defaultWorkerCount(), size,
		func(ctx context.Context) *extractor.Extractor { return e.newExtractor(ctx, suite.IconTheme) },
		func(pkid string) bool {
			ignored, _ := e.data.IsIgnored(ctx, pkid)
			if ignored {
				return true
			}
			recorded, _ := e.data.HasRecord(ctx, pkid)
			return recorded
		},
		func(result *model.GeneratorResult) error {
			return e.data.AddGeneratorResult(ctx, result, false)
		},
	)
}

// newExtractor builds one extractor.Extractor per worker (spec §4.6 step
// 2), wiring ExistingPackageForCID to the DataStore-backed duplicate-id
// lookup (spec §4.5).
func (e *Engine) newExtractor(ctx context.Context, iconTheme string) *extractor.Extractor {
	ex := extractor.New(e.cfg, e.reg, e.iconHandler)
	ex.IconTheme = iconTheme
	ex.ExistingPackageForCID = func(cid string) (string, bool) {
		name, ok, err := e.data.PackageNameForCID(ctx, cid)
		if err != nil {
			return "", false
		}
		return name, ok
	}
	return ex
}

// processInjected implements spec §4.6 step 3: if the suite names an
// extra-metainfo directory, build a synthetic fake package from its *.xml
// files and run it through the same extractor path, always regenerating
// its cached metadata since it has no package-index watermark of its own.
func (e *Engine) processInjected(ctx context.Context, suite model.Suite, arch string) error {
	if suite.ExtraMetainfoDir == "" {
		return nil
	}
	pkg, err := newInjectedPackage(arch, suite.ExtraMetainfoDir)
	if err != nil {
		slog.Warn("injected metainfo directory unreadable", slog.String("dir", suite.ExtraMetainfoDir), slog.Any("err", err))
		return nil
	}
	if len(pkg.Contents()) == 0 {
		return nil
	}

	ex := e.newExtractor(ctx, suite.IconTheme)
	result := ex.Process(ctx, pkg)
	return e.data.AddGeneratorResult(ctx, result, true)
}

// ProcessFile extracts one or more standalone archive files against a
// suite/section's icon theme, always regenerating their cached metadata,
// for the CLI's `process-file` subcommand (spec §6). Unlike Run, it does
// not consult the backend's package index or watermark: each path is
// turned into a Package directly via the Backend's PackageForFile.
func (e *Engine) ProcessFile(ctx context.Context, suiteName, section string, paths []string) error {
	def, ok := e.cfg.Suites[suiteName]
	if !ok {
		return fmt.Errorf("unknown suite %q", suiteName)
	}

	ex := e.newExtractor(ctx, def.IconTheme)
	for _, path := range paths {
		pkg, err := e.backend.PackageForFile(ctx, path, suiteName, section)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		result := ex.Process(ctx, pkg)
		pkg.Finish()
		if err := e.data.AddGeneratorResult(ctx, result, true); err != nil {
			return fmt.Errorf("store result for %s: %w", path, err)
		}
	}
	return nil
}

// Cleanup implements spec §4.6's post-suites Cleanup: recompute the active
// pkid set across every mutable suite/section/arch, drop anything no
// longer active from both stores, and run DataStore.CleanupCruft.
func (e *Engine) Cleanup(ctx context.Context) error {
	active := make(map[string]bool)
	for name, def := range e.cfg.Suites {
		if def.Immutable {
			continue
		}
		for _, section := range def.Sections {
			for _, arch := range def.Architectures {
				pkgs, err := e.backend.PackagesFor(ctx, name, section, arch, false)
				if err != nil {
					return fmt.Errorf("list packages for cleanup %s/%s/%s: %w", name, section, arch, err)
				}
				for _, pkg := range pkgs {
					active[pkg.Pkid()] = true
				}
			}
		}
	}

	contentsPkids, err := e.contents.AllPkids(ctx)
	if err != nil {
		return fmt.Errorf("list contents pkids: %w", err)
	}
	var stale []string
	for _, pkid := range contentsPkids {
		if !active[pkid] {
			stale = append(stale, pkid)
		}
	}
	if err := e.contents.RemovePackages(ctx, stale); err != nil {
		return fmt.Errorf("remove stale contents: %w", err)
	}
	for _, pkid := range stale {
		if err := e.data.RemovePackage(ctx, pkid); err != nil {
			return fmt.Errorf("remove stale package %s: %w", pkid, err)
		}
	}

	mediaPoolRoot := filepath.Join(e.cfg.ExportMediaDir(), "pool")
	var suitePaths []string
	for name, def := range e.cfg.Suites {
		if !def.Immutable {
			suitePaths = append(suitePaths, filepath.Join(e.cfg.ExportMediaDir(), name))
		}
	}
	if err := e.data.CleanupCruft(ctx, mediaPoolRoot, suitePaths); err != nil {
		return fmt.Errorf("cleanup cruft: %w", err)
	}

	return e.tmp.Remove()
}

// RecordStatistics appends one timestamped snapshot to the statistics log
// (spec §4.6 step 6's "update ... statistics").
func (e *Engine) RecordStatistics(ctx context.Context, data []byte) error {
	return e.data.AddStatistics(ctx, time.Now().Unix(), data)
}
