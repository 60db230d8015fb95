package cmd

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/asgen-go/asgen/internal/engine"
	"github.com/asgen-go/asgen/internal/progressui"
)

// renderProgress adapts a progressui.Renderer to engine.Progress,
// translating the Engine's per-triple counters into progressui's
// current/total ProgressEvent shape and tracking the run's start time for
// the final CompletionStats.
type renderProgress struct {
	mu      sync.Mutex
	render  progressui.Renderer
	total   int
	current int
	triples int
	start   time.Time
}

func newRenderProgress(r progressui.Renderer) *renderProgress {
	return &renderProgress{render: r, start: time.Now()}
}

func (p *renderProgress) SetCurrentTriple(triple string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.triples++
	p.render.UpdateProgress(progressui.ProgressEvent{
		Stage:   progressui.StageExtracting,
		Current: p.current,
		Total:   p.total,
		Triple:  triple,
	})
}

func (p *renderProgress) AddTotal(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total += n
	p.render.UpdateProgress(progressui.ProgressEvent{
		Stage:   progressui.StageExtracting,
		Current: p.current,
		Total:   p.total,
	})
}

func (p *renderProgress) Advance(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.render.UpdateProgress(progressui.ProgressEvent{
		Stage:   progressui.StageExporting,
		Current: p.current,
		Total:   p.total,
	})
}

func (p *renderProgress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render.Complete(progressui.CompletionStats{
		Packages: p.current,
		Triples:  p.triples,
		Duration: time.Since(p.start),
	})
}

var _ engine.Progress = (*renderProgress)(nil)

// withProgress starts a progressui.Renderer appropriate for stdout, runs
// fn with it wired into ws.eng, and stops the renderer afterward. Errors
// from fn are returned unchanged; rendering itself never fails a command.
func withProgress(ctx context.Context, ws *workspace, plain bool, fn func(context.Context) error) error {
	cfg := progressui.NewConfig(os.Stdout, plain, progressui.DetectNoColor(), workspaceDir)
	renderer := progressui.NewRenderer(cfg)
	reporter := newRenderProgress(renderer)
	ws.eng.SetProgress(reporter)

	if err := renderer.Start(ctx); err != nil {
		return fn(ctx)
	}
	defer func() { _ = renderer.Stop() }()

	return fn(ctx)
}
