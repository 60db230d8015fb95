package engine

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/asgen-go/asgen/internal/extractor"
	"github.com/asgen-go/asgen/internal/model"
)

// chunkSize implements spec §4.6's rule: max(10, min(100, total/cores/10)).
func chunkSize(total, cores int) int {
	if cores < 1 {
		cores = 1
	}
	size := total / cores / 10
	if size > 100 {
		size = 100
	}
	if size < 10 {
		size = 10
	}
	return size
}

func chunks(pkgs []model.Package, size int) [][]model.Package {
	if size < 1 {
		size = 1
	}
	var out [][]model.Package
	for size < len(pkgs) || len(pkgs) > 0 {
		if len(pkgs) <= size {
			out = append(out, pkgs)
			break
		}
		out = append(out, pkgs[:size])
		pkgs = pkgs[size:]
	}
	return out
}

// runExtraction processes pkgs in chunks across a bounded worker pool,
// grounded on the teacher's internal/search.parallelSubSearch: an
// errgroup plus a semaphore channel bounding in-flight chunks. Each
// worker builds its own extractor.Extractor (spec §4.6: "each worker
// constructs its own DataExtractor") and processes its chunk's packages
// sequentially, calling persist (serialized via persistMu, standing in
// for DataStore's per-store write mutex) and pkg.Finish() immediately
// after each one. Extraction order across workers is not observable in
// the result, since DataStore writes are keyed by pkid/GCID (spec §5).
func runExtraction(ctx context.Context, pkgs []model.Package, workers int, chunkLen int, newExtractor func(context.Context) *extractor.Extractor, skip func(pkid string) bool, persist func(*model.GeneratorResult) error) error {
	batches := chunks(pkgs, chunkLen)

	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)
	var persistMu sync.Mutex

	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			ex := newExtractor(gctx)
			for _, pkg := range batch {
				if skip != nil && skip(pkg.Pkid()) {
					continue
				}
				result := ex.Process(gctx, pkg)
				pkg.Finish()

				persistMu.Lock()
				err := persist(result)
				persistMu.Unlock()
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func defaultWorkerCount() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

// boundedEach runs fn(i) for i in [0, n) across a bounded worker pool,
// the same errgroup+semaphore shape as runExtraction, used by
// contents-seeding where there is no chunking or extractor to build.
func boundedEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
