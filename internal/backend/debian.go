package backend

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/asgen-go/asgen/internal/model"
)

// DebianBackend is the reference PackageIndex implementation, grounded on
// the repository metadata fetch/convert shape in the dbin reference
// generator (other_examples): a package index file enumerates stanzas,
// each pointing at a pool archive read independently per package. Per
// SPEC_FULL.md §2.1, `.deb`'s `ar` container is simplified to a plain
// `.tar.gz` pool archive, since no example in the pack parses `ar` and the
// Backend is an external, swappable collaborator (spec §6).
type DebianBackend struct {
	ArchiveRoot string
}

// NewDebianBackend returns a backend rooted at archiveRoot, expecting the
// standard dists/<suite>/<section>/binary-<arch>/Packages.gz layout.
func NewDebianBackend(archiveRoot string) *DebianBackend {
	return &DebianBackend{ArchiveRoot: archiveRoot}
}

func (b *DebianBackend) indexPath(suite, section, arch string) string {
	return filepath.Join(b.ArchiveRoot, "dists", suite, section, "binary-"+arch, "Packages.gz")
}

// HasChanges compares the package index file's mtime against the stored
// watermark (spec §6: "compare index file mtime against
// store.repo_info[suite-section-arch].mtime").
func (b *DebianBackend) HasChanges(ctx context.Context, suite, section, arch string, storedMtime int64) (bool, int64, error) {
	info, err := os.Stat(b.indexPath(suite, section, arch))
	if err != nil {
		return false, 0, fmt.Errorf("stat package index: %w", err)
	}
	mtime := info.ModTime().Unix()
	return mtime != storedMtime, mtime, nil
}

// PackagesFor parses the gzip-compressed control-stanza index for
// suite/section/arch and returns one model.Package per stanza.
func (b *DebianBackend) PackagesFor(ctx context.Context, suite, section, arch string, withLongDescs bool) ([]model.Package, error) {
	f, err := os.Open(b.indexPath(suite, section, arch))
	if err != nil {
		return nil, fmt.Errorf("open package index: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("ungzip package index: %w", err)
	}
	defer gz.Close()

	stanzas, err := parseControlStanzas(gz)
	if err != nil {
		return nil, fmt.Errorf("parse package index: %w", err)
	}

	pkgs := make([]model.Package, 0, len(stanzas))
	for _, st := range stanzas {
		pkg, err := newDebianPackage(b.ArchiveRoot, st, withLongDescs)
		if err != nil {
			continue
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

// PackageForFile builds a Package directly from an archive file on disk,
// deriving name/version/arch from its "<name>_<version>_<arch>.tar.gz"
// pool filename convention.
func (b *DebianBackend) PackageForFile(ctx context.Context, path, suite, section string) (model.Package, error) {
	name, version, arch := parsePoolFilename(filepath.Base(path))
	if name == "" {
		return nil, fmt.Errorf("cannot derive a package name from %q", path)
	}
	return &debianPackage{
		archiveRoot: b.ArchiveRoot,
		poolPath:    path,
		name:        name,
		version:     version,
		arch:        arch,
	}, nil
}

// Release is a no-op: DebianBackend holds no resources across calls.
func (b *DebianBackend) Release() {}

func parsePoolFilename(base string) (name, version, arch string) {
	base = strings.TrimSuffix(base, ".tar.gz")
	parts := strings.SplitN(base, "_", 3)
	if len(parts) == 3 {
		return parts[0], parts[1], parts[2]
	}
	return base, "", ""
}

// controlStanza is one RFC822-style package entry from a Packages index.
type controlStanza map[string]string

// parseControlStanzas reads Debian-style control stanzas separated by
// blank lines, folding continuation lines (leading whitespace) into the
// previous field, matching dpkg's control file grammar.
func parseControlStanzas(r io.Reader) ([]controlStanza, error) {
	var stanzas []controlStanza
	cur := controlStanza{}
	lastKey := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				stanzas = append(stanzas, cur)
				cur = controlStanza{}
				lastKey = ""
			}
			continue
		}
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && lastKey != "" {
			cur[lastKey] += "\n" + strings.TrimSpace(line)
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		cur[key] = value
		lastKey = key
	}
	if len(cur) > 0 {
		stanzas = append(stanzas, cur)
	}
	return stanzas, scanner.Err()
}

// debianPackage implements model.Package against one control stanza. It
// holds no open file handles between calls: Contents/GetFileData each
// open and close the pool archive independently, so Finish is a no-op and
// the type is safe to use from multiple extraction workers concurrently.
type debianPackage struct {
	archiveRoot string
	poolPath    string // relative to archiveRoot, or absolute for PackageForFile

	name, version, arch, maintainer string
	summary, longDesc               string
	gst                             *model.GstInfo

	mu             sync.Mutex
	contents       []string
	contentsLoaded bool
}

func newDebianPackage(archiveRoot string, st controlStanza, withLongDescs bool) (*debianPackage, error) {
	name, version, arch := st["Package"], st["Version"], st["Architecture"]
	if name == "" || version == "" || arch == "" {
		return nil, fmt.Errorf("control stanza missing Package/Version/Architecture")
	}
	summary, long := splitDescription(st["Description"])
	if !withLongDescs {
		long = ""
	}
	return &debianPackage{
		archiveRoot: archiveRoot,
		poolPath:    st["Filename"],
		name:        name,
		version:     version,
		arch:        arch,
		maintainer:  st["Maintainer"],
		summary:     summary,
		longDesc:    long,
		gst:         parseGst(st),
	}, nil
}

func splitDescription(desc string) (summary, long string) {
	parts := strings.SplitN(desc, "\n", 2)
	summary = parts[0]
	if len(parts) > 1 {
		long = parts[1]
	}
	return summary, long
}

func parseGst(st controlStanza) *model.GstInfo {
	g := &model.GstInfo{
		Elements:   splitCommaList(st["Gstreamer-Elements"]),
		Decoders:   splitCommaList(st["Gstreamer-Decoders"]),
		Encoders:   splitCommaList(st["Gstreamer-Encoders"]),
		URISources: splitCommaList(st["Gstreamer-Uri-Sources"]),
		URISinks:   splitCommaList(st["Gstreamer-Uri-Sinks"]),
	}
	if len(g.Elements)+len(g.Decoders)+len(g.Encoders)+len(g.URISources)+len(g.URISinks) == 0 {
		return nil
	}
	return g
}

func splitCommaList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (p *debianPackage) Name() string             { return p.name }
func (p *debianPackage) Version() string          { return p.version }
func (p *debianPackage) Arch() string              { return p.arch }
func (p *debianPackage) Maintainer() string        { return p.maintainer }
func (p *debianPackage) Kind() model.PackageKind   { return model.PackageReal }
func (p *debianPackage) Pkid() string              { return model.Pkid(p.name, p.version, p.arch) }
func (p *debianPackage) Gst() *model.GstInfo       { return p.gst }
func (p *debianPackage) Finish()                   {}

func (p *debianPackage) Summary() map[string]string {
	if p.summary == "" {
		return nil
	}
	return map[string]string{"C": p.summary}
}

func (p *debianPackage) Description() map[string]string {
	if p.longDesc == "" {
		return nil
	}
	return map[string]string{"C": p.longDesc}
}

func (p *debianPackage) archivePath() string {
	if filepath.IsAbs(p.poolPath) {
		return p.poolPath
	}
	return filepath.Join(p.archiveRoot, p.poolPath)
}

// Contents lists every regular file the package's pool archive contains,
// caching the result after the first call.
func (p *debianPackage) Contents() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.contentsLoaded {
		return p.contents
	}
	contents, err := p.listContents()
	if err != nil {
		return nil
	}
	p.contents = contents
	p.contentsLoaded = true
	return contents
}

func (p *debianPackage) listContents() ([]string, error) {
	f, err := os.Open(p.archivePath())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var out []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag == tar.TypeReg {
			out = append(out, normalizeTarPath(hdr.Name))
		}
	}
	return out, nil
}

// GetFileData extracts one file's bytes from the pool archive.
func (p *debianPackage) GetFileData(path string) ([]byte, error) {
	f, err := os.Open(p.archivePath())
	if err != nil {
		return nil, fmt.Errorf("open package archive: %w", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("ungzip package archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if normalizeTarPath(hdr.Name) == path {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("file not found in package archive: %s", path)
}

func normalizeTarPath(name string) string {
	name = strings.TrimPrefix(name, "./")
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}
