package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/backend"
	"github.com/asgen-go/asgen/internal/contentsstore"
	"github.com/asgen-go/asgen/internal/datastore"
	"github.com/asgen-go/asgen/internal/engine"
	"github.com/asgen-go/asgen/internal/exporter"
	"github.com/asgen-go/asgen/internal/hints"
)

// workspace bundles every component a subcommand needs, wired the way
// Engine.New expects: one open ContentsStore/DataStore, a populated
// HintRegistry, the configured Backend, and an Exporter.
type workspace struct {
	cfg      *appconfig.Config
	contents *contentsstore.Store
	data     *datastore.Store
	hints    *hints.Registry
	idx      backend.PackageIndex
	exp      *exporter.Exporter
	eng      *engine.Engine
}

// openWorkspace loads asgen-config.json from workspaceDir and opens every
// store it names, in the same dependency order cmd/amanmcp/cmd wires its
// index/search stack (config first, then stores, then the engine that
// depends on all of them).
func openWorkspace() (*workspace, func(), error) {
	cfg, err := appconfig.Load(workspaceDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.DBDir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create db dir: %w", err)
	}

	contents, err := contentsstore.Open(filepath.Join(cfg.DBDir(), "contents.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open contents store: %w", err)
	}

	data, err := datastore.Open(filepath.Join(cfg.DBDir(), "data.db"), cfg.MetadataType)
	if err != nil {
		contents.Close()
		return nil, nil, fmt.Errorf("open data store: %w", err)
	}

	reg := hints.New()
	defsPath := filepath.Join(workspaceDir, "hint-definitions.json")
	if _, statErr := os.Stat(defsPath); statErr == nil {
		if err := reg.LoadDefinitions(defsPath); err != nil {
			data.Close()
			contents.Close()
			return nil, nil, fmt.Errorf("load hint definitions: %w", err)
		}
	}

	idx := backend.NewDebianBackend(cfg.ArchiveRoot)
	exp := exporter.New(cfg, data, reg)

	eng, err := engine.New(cfg, contents, data, reg, idx, exp)
	if err != nil {
		data.Close()
		contents.Close()
		return nil, nil, fmt.Errorf("build engine: %w", err)
	}

	ws := &workspace{cfg: cfg, contents: contents, data: data, hints: reg, idx: idx, exp: exp, eng: eng}
	closeFn := func() {
		idx.Release()
		data.Close()
		contents.Close()
	}
	return ws, closeFn, nil
}
