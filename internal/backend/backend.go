// Package backend implements the external Backend contract from spec §6:
// PackageIndex enumerates a distribution's packages for a given
// (suite, section, arch) triple and hands back model.Package values the
// rest of asgen treats as opaque collaborators.
package backend

import (
	"context"

	"github.com/asgen-go/asgen/internal/model"
)

// PackageIndex is the swappable collaborator the Engine drives. A
// concrete backend (Debian, RPM, ...) implements this against its own
// repository format; asgen's core never depends on anything more
// specific than this interface plus model.Package.
type PackageIndex interface {
	// PackagesFor lists every package in suite/section/arch. When
	// withLongDescs is false, implementations may skip loading a
	// package's long description to save I/O (spec §6).
	PackagesFor(ctx context.Context, suite, section, arch string, withLongDescs bool) ([]model.Package, error)

	// PackageForFile builds a single Package directly from an archive
	// file on disk, used by the `process-file` CLI subcommand. suite
	// and section are hints a backend may use to resolve pool-relative
	// paths; both may be empty for an absolute path.
	PackageForFile(ctx context.Context, path, suite, section string) (model.Package, error)

	// HasChanges reports whether the package index for suite/section/arch
	// has changed since storedMtime (the watermark recorded in
	// DataStore.repo_info), returning the index's current mtime so the
	// caller can update that watermark.
	HasChanges(ctx context.Context, suite, section, arch string, storedMtime int64) (changed bool, mtime int64, err error)

	// Release frees any resources the index holds open across calls.
	Release()
}
