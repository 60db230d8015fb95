package model

import "fmt"

// PackageKind distinguishes real, backend-enumerated packages from
// synthetic ones asgen constructs itself (injected metainfo, GStreamer
// codec components).
type PackageKind string

const (
	PackageReal PackageKind = "real"
	PackageFake PackageKind = "fake"
)

// GstInfo carries GStreamer codec/element capability metadata a package
// may export, used to synthesize codec components (spec §4.5).
type GstInfo struct {
	Elements   []string
	Decoders   []string
	Encoders   []string
	URISources []string
	URISinks   []string
}

// Package is the external package contract from spec §6. Concrete
// implementations are provided by a Backend; asgen's core only depends on
// this interface.
type Package interface {
	Name() string
	Version() string
	Arch() string
	Maintainer() string
	Kind() PackageKind

	// Pkid returns the canonical "name/version/arch" identifier.
	Pkid() string

	Summary() map[string]string
	Description() map[string]string

	// Contents lists every file path the package installs.
	Contents() []string

	// GetFileData returns the raw bytes of one contained file.
	GetFileData(path string) ([]byte, error)

	// Gst returns GStreamer capability metadata, or nil if none.
	Gst() *GstInfo

	// Finish releases transient resources (open archives, temp files).
	// Must be safe to call multiple times and on failure paths.
	Finish()
}

// Pkid formats the canonical package identifier from its three parts.
func Pkid(name, version, arch string) string {
	return fmt.Sprintf("%s/%s/%s", name, version, arch)
}

// Suite is a named distribution release grouping sections and
// architectures (spec §3).
type Suite struct {
	Name           string
	Sections       []string
	Architectures  []string
	BaseSuite      string // contents inherited for scanning only, not output
	IconTheme      string
	DataPriority   int
	Immutable      bool
	ExtraMetainfoDir string
}
