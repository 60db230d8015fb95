package engine

import (
	"os"
	"path/filepath"

	"github.com/asgen-go/asgen/internal/model"
)

// injectedPackage is the synthetic "fake" package spec §4.6 step 3
// describes: a fixed name, the current section's arch, and a contents
// list built by scanning ExtraMetainfoDir for *.xml files, presented
// under /usr/share/metainfo/ so DataExtractor's normal partitioning picks
// them up without a separate code path.
type injectedPackage struct {
	arch  string
	dir   string
	files map[string]string // virtual path -> real path on disk
}

func newInjectedPackage(arch, dir string) (*injectedPackage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".xml" {
			continue
		}
		files["/usr/share/metainfo/"+e.Name()] = filepath.Join(dir, e.Name())
	}
	return &injectedPackage{arch: arch, dir: dir, files: files}, nil
}

func (p *injectedPackage) Name() string            { return "_asgen-injected" }
func (p *injectedPackage) Version() string         { return "0" }
func (p *injectedPackage) Arch() string            { return p.arch }
func (p *injectedPackage) Maintainer() string      { return "" }
func (p *injectedPackage) Kind() model.PackageKind { return model.PackageFake }
func (p *injectedPackage) Pkid() string            { return model.Pkid(p.Name(), p.Version(), p.arch) }
func (p *injectedPackage) Summary() map[string]string     { return nil }
func (p *injectedPackage) Description() map[string]string { return nil }
func (p *injectedPackage) Gst() *model.GstInfo             { return nil }
func (p *injectedPackage) Finish()                         {}

func (p *injectedPackage) Contents() []string {
	out := make([]string, 0, len(p.files))
	for v := range p.files {
		out = append(out, v)
	}
	return out
}

func (p *injectedPackage) GetFileData(path string) ([]byte, error) {
	real, ok := p.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(real)
}
