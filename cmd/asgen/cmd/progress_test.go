package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asgen-go/asgen/internal/progressui"
)

func TestRenderProgressReportsTriplesAndCompletion(t *testing.T) {
	// Given: a renderProgress adapter wrapping a plain renderer
	var buf bytes.Buffer
	renderer := progressui.NewPlainRenderer(progressui.Config{Output: &buf})
	reporter := newRenderProgress(renderer)

	// When: the Engine drives it through one triple of 3 packages
	reporter.SetCurrentTriple("stable-main-amd64")
	reporter.AddTotal(3)
	reporter.Advance(3)
	reporter.Complete()

	// Then: the plain renderer saw the triple name and the final count
	output := buf.String()
	assert.Contains(t, output, "stable-main-amd64")
	assert.Contains(t, output, "0/3")
	assert.Contains(t, output, "Complete: 3 packages across 1 triples")
}

func TestRenderProgressAccumulatesAcrossMultipleTriples(t *testing.T) {
	// Given: a renderProgress adapter
	var buf bytes.Buffer
	renderer := progressui.NewPlainRenderer(progressui.Config{Output: &buf})
	reporter := newRenderProgress(renderer)

	// When: two triples are processed in sequence
	reporter.SetCurrentTriple("stable-main-amd64")
	reporter.AddTotal(2)
	reporter.Advance(2)
	reporter.SetCurrentTriple("stable-contrib-amd64")
	reporter.AddTotal(1)
	reporter.Advance(1)
	reporter.Complete()

	// Then: the running totals reflect both triples
	assert.Equal(t, 3, reporter.current)
	assert.Equal(t, 3, reporter.total)
	assert.Equal(t, 2, reporter.triples)
}
