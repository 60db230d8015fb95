package progressui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparklineRendersWidthSamples(t *testing.T) {
	s := NewSparkline(5)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		s.Add(v)
	}
	rendered := s.Render()
	assert.Len(t, []rune(rendered), 5)
	assert.Equal(t, 5, s.Count())
	assert.Equal(t, 5.0, s.Max())
}

func TestSparklineClearResetsState(t *testing.T) {
	s := NewSparkline(4)
	s.Add(10)
	s.Clear()
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, 0.0, s.Max())
	assert.Equal(t, "▁▁▁▁", s.Render())
}

func TestProgressTrackerStatsReflectsUpdate(t *testing.T) {
	tr := NewProgressTracker()
	tr.SetStage(StageExtracting, 10)
	tr.Update(5, "stable/main/amd64")

	stats := tr.Stats()
	assert.Equal(t, StageExtracting, stats.Stage)
	assert.Equal(t, 5, stats.Current)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 0.5, stats.Progress)
	assert.Equal(t, "stable/main/amd64", stats.Triple)
}

func TestProgressTrackerAddTotalAccumulates(t *testing.T) {
	tr := NewProgressTracker()
	tr.SetStage(StageExtracting, 10)
	tr.AddTotal(5)
	assert.Equal(t, 15, tr.Stats().Total)
}

func TestProgressTrackerRecordsErrorsAndWarnings(t *testing.T) {
	tr := NewProgressTracker()
	tr.AddError(ErrorEvent{Triple: "stable/main/amd64", Err: errors.New("boom")})
	tr.AddError(ErrorEvent{Triple: "stable/main/amd64", Err: errors.New("careful"), IsWarn: true})

	stats := tr.Stats()
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)
	assert.Len(t, tr.Errors(), 1)
	assert.Len(t, tr.Warnings(), 1)
}

func TestPlainRendererWritesProgressAndCompletion(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})
	require.NoError(t, r.Start(nil))

	r.UpdateProgress(ProgressEvent{Stage: StageExtracting, Current: 1, Total: 2, Triple: "stable/main/amd64"})
	r.AddError(ErrorEvent{Triple: "stable/main/amd64", Err: errors.New("bad metainfo"), IsWarn: true})
	r.Complete(CompletionStats{Packages: 2, Triples: 1, Duration: 2 * time.Second})
	require.NoError(t, r.Stop())

	out := buf.String()
	assert.Contains(t, out, "[EXTRACT] 1/2 - stable/main/amd64")
	assert.Contains(t, out, "WARN: stable/main/amd64: bad metainfo")
	assert.Contains(t, out, "Complete: 2 packages across 1 triples")
}

func TestNewRendererFallsBackToPlainForNonTTY(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(Config{Output: &buf})
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestIsTTYFalseForNonFileWriter(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTTY(&buf))
	assert.False(t, IsTTY(nil))
}
