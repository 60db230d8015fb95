package progressui

import (
	"sync"
	"time"
)

// ProgressTracker accumulates progress state for one run across stages.
// Safe for concurrent use.
type ProgressTracker struct {
	mu         sync.RWMutex
	stage      Stage
	current    int
	total      int
	triple     string
	startTime  time.Time
	stageStart time.Time
	errors     []ErrorEvent
	warnings   []ErrorEvent

	lastETA time.Duration

	lastCurrent   int
	lastSpeedCalc time.Time
	currentSpeed  float64
	avgSpeed      float64
	peakSpeed     float64
	speedSamples  int
	sparkline     *Sparkline
}

// SpeedStats holds packages/sec metrics for display.
type SpeedStats struct {
	Current float64
	Avg     float64
	Peak    float64
}

// ProgressStats is a snapshot of current progress.
type ProgressStats struct {
	Stage      Stage
	Current    int
	Total      int
	Progress   float64
	ETA        time.Duration
	Triple     string
	ErrorCount int
	WarnCount  int
	Speed      SpeedStats
}

// NewProgressTracker creates a tracker starting at StageSeeding.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		stage:         StageSeeding,
		startTime:     now,
		stageStart:    now,
		lastSpeedCalc: now,
		sparkline:     NewSparkline(60),
	}
}

// SetStage transitions to a new stage, resetting its own progress/speed
// counters.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.total = total
	p.current = 0
	p.triple = ""
	p.stageStart = time.Now()
	p.lastETA = 0

	p.lastCurrent = 0
	p.lastSpeedCalc = time.Now()
	p.currentSpeed = 0
	p.avgSpeed = 0
	p.peakSpeed = 0
	p.speedSamples = 0
	p.sparkline.Clear()
}

// AddTotal increases the current stage's total, for when the package
// count of a triple only becomes known after the stage has started.
func (p *ProgressTracker) AddTotal(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total += n
}

// Update records progress within the current stage.
func (p *ProgressTracker) Update(current int, triple string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if triple != "" {
		p.triple = triple
	}

	now := time.Now()
	elapsed := now.Sub(p.lastSpeedCalc)
	if elapsed >= 500*time.Millisecond {
		delta := current - p.lastCurrent
		if delta > 0 && elapsed > 0 {
			speed := float64(delta) / elapsed.Seconds()
			p.currentSpeed = speed

			p.speedSamples++
			if p.speedSamples == 1 {
				p.avgSpeed = speed
			} else {
				p.avgSpeed = 0.2*speed + 0.8*p.avgSpeed
			}
			if speed > p.peakSpeed {
				p.peakSpeed = speed
			}
			p.sparkline.Add(speed)
		}
		p.lastCurrent = current
		p.lastSpeedCalc = now
	}
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.IsWarn {
		p.warnings = append(p.warnings, event)
	} else {
		p.errors = append(p.errors, event)
	}
}

// Progress returns current stage progress in [0,1].
func (p *ProgressTracker) Progress() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.total == 0 {
		return 0
	}
	progress := float64(p.current) / float64(p.total)
	if progress > 1 {
		return 1
	}
	return progress
}

// ETA estimates remaining time for the current stage.
func (p *ProgressTracker) ETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calculateETA()
}

// Elapsed returns the time since the tracker was created.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Since(p.startTime)
}

// Stats returns a snapshot of current progress.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress := 0.0
	if p.total > 0 {
		progress = float64(p.current) / float64(p.total)
		if progress > 1 {
			progress = 1
		}
	}

	return ProgressStats{
		Stage:      p.stage,
		Current:    p.current,
		Total:      p.total,
		Progress:   progress,
		ETA:        p.calculateETA(),
		Triple:     p.triple,
		ErrorCount: len(p.errors),
		WarnCount:  len(p.warnings),
		Speed: SpeedStats{
			Current: p.currentSpeed,
			Avg:     p.avgSpeed,
			Peak:    p.peakSpeed,
		},
	}
}

// etaSmoothingFactor weights new ETA samples against the previous
// smoothed value: 30% new, 70% old.
const etaSmoothingFactor = 0.3

func (p *ProgressTracker) calculateETA() time.Duration {
	if p.current == 0 || p.total == 0 {
		return 0
	}
	elapsed := time.Since(p.stageStart)
	progress := float64(p.current) / float64(p.total)
	if progress <= 0 || progress >= 1 {
		return 0
	}

	totalEstimate := time.Duration(float64(elapsed) / progress)
	rawRemaining := totalEstimate - elapsed
	if rawRemaining < 0 {
		return 0
	}

	if p.lastETA == 0 {
		p.lastETA = rawRemaining
		return rawRemaining
	}
	smoothed := time.Duration(etaSmoothingFactor*float64(rawRemaining) + (1-etaSmoothingFactor)*float64(p.lastETA))
	p.lastETA = smoothed
	return smoothed
}

// Errors returns the recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ErrorEvent, len(p.errors))
	copy(out, p.errors)
	return out
}

// Warnings returns the recorded warnings.
func (p *ProgressTracker) Warnings() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ErrorEvent, len(p.warnings))
	copy(out, p.warnings)
	return out
}

// RenderSparkline renders the throughput sparkline at the given width (0
// for the buffer's full width).
func (p *ProgressTracker) RenderSparkline(width int) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.sparkline == nil {
		return ""
	}
	if width <= 0 {
		return p.sparkline.Render()
	}
	return p.sparkline.RenderWithWidth(width)
}

// SpeedStats returns the current speed metrics.
func (p *ProgressTracker) SpeedStats() SpeedStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return SpeedStats{Current: p.currentSpeed, Avg: p.avgSpeed, Peak: p.peakSpeed}
}
