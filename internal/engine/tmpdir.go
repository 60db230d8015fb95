package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// tmpDir lazily creates the per-run scratch directory
// <cache>/tmp/asgen-<rand> (spec §5), guarded by sync.Once so concurrent
// extraction workers racing to create it on first use only create it once.
// Resolved per spec §9: the source bug (lock held only around the write,
// not the read) is not reproduced by synchronizing the whole
// check-then-create with Once instead of a bare mutex around the write.
type tmpDir struct {
	once sync.Once
	root string
	err  error
	base string
}

func newTmpDir(base string) *tmpDir {
	return &tmpDir{base: base}
}

// Get returns the run's scratch directory, creating it on first call.
func (t *tmpDir) Get() (string, error) {
	t.once.Do(func() {
		dir := filepath.Join(t.base, "asgen-"+uuid.NewString())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.err = fmt.Errorf("create run tmp dir: %w", err)
			return
		}
		t.root = dir
	})
	return t.root, t.err
}

// Remove deletes the run's scratch directory, if it was ever created.
func (t *tmpDir) Remove() error {
	if t.root == "" {
		return nil
	}
	return os.RemoveAll(t.root)
}
