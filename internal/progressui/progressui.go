// Package progressui renders run/cleanup progress to the terminal. It is
// purely an ambient reporting concern: nothing in internal/engine depends
// on progressui's types, and a nil Renderer never changes extraction
// semantics. Grounded on the teacher's internal/ui package: the same
// Stage/Renderer/Config split, generalized from chunk-indexing stages to
// the Engine's seed/extract/export pipeline.
package progressui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents a phase of one suite/section/arch triple's processing.
type Stage int

const (
	// StageSeeding covers contents-seeding and ignore classification.
	StageSeeding Stage = iota
	// StageExtracting covers parallel metadata extraction and injected
	// metainfo processing.
	StageExtracting
	// StageExporting covers catalog, hints, CID-index, and icon tarball
	// writing.
	StageExporting
	// StageComplete indicates the run finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageSeeding:
		return "Seeding"
	case StageExtracting:
		return "Extracting"
	case StageExporting:
		return "Exporting"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage label for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageSeeding:
		return "SEED"
	case StageExtracting:
		return "EXTRACT"
	case StageExporting:
		return "EXPORT"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage   Stage
	Current int
	Total   int
	Triple  string // "<suite>/<section>/<arch>" currently being processed
	Message string
}

// ErrorEvent represents an error or warning raised while processing a
// triple.
type ErrorEvent struct {
	Triple string
	Err    error
	IsWarn bool
}

// CompletionStats contains final run statistics.
type CompletionStats struct {
	Packages int
	Triples  int
	Duration time.Duration
	Errors   int
	Warnings int
}

// Renderer defines the interface for progress display.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures a Renderer.
type Config struct {
	Output       io.Writer
	ForcePlain   bool
	NoColor      bool
	WorkspaceDir string // shown in the TUI header
}

// NewConfig creates a Config with the given output.
func NewConfig(output io.Writer, forcePlain, noColor bool, workspaceDir string) Config {
	return Config{
		Output:       output,
		ForcePlain:   forcePlain,
		NoColor:      noColor,
		WorkspaceDir: workspaceDir,
	}
}

// NewRenderer picks a TUI renderer for interactive terminals and a plain
// text renderer for CI, pipes, or when ForcePlain is set.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI reports whether a known CI environment variable is set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
