// Package model defines the core data types shared across asgen: the
// AppStream-style Component object model, the Package/Suite value types
// exposed by backends, and the Global Component ID (GCID) scheme that keys
// both the media pool and the metadata cache.
package model

import "time"

// Kind enumerates the AppStream component kinds asgen understands.
type Kind string

const (
	KindDesktopApp     Kind = "desktop-app"
	KindConsoleApp     Kind = "console-app"
	KindWebApp         Kind = "web-app"
	KindFont           Kind = "font"
	KindCodec          Kind = "codec"
	KindOperatingSys   Kind = "operating-system"
	KindRepository     Kind = "repository"
	KindGeneric        Kind = "generic"
	KindUnknown        Kind = ""
)

// MergeKind describes how a component should be merged with existing
// catalog entries for the same cid.
type MergeKind string

const (
	MergeNone          MergeKind = ""
	MergeReplace       MergeKind = "replace"
	MergeAppend        MergeKind = "append"
	MergeRemoveComponent MergeKind = "remove-component"
)

// IconKind distinguishes how an Icon entry should be resolved.
type IconKind string

const (
	IconKindCached IconKind = "cached"
	IconKindRemote IconKind = "remote"
	IconKindStock  IconKind = "stock"
)

// Icon is a single icon reference attached to a Component.
type Icon struct {
	Kind   IconKind
	Name   string // logical name (stock) or filename (cached/remote)
	Width  int
	Height int
	Scale  int
	URL    string // set for remote icons
}

// Launchable associates a component with a way of starting it, e.g. a
// desktop-id pointing at a .desktop file shipped in the same package.
type Launchable struct {
	Kind  string // "desktop-id" is the only kind asgen resolves
	Value string
}

// Release describes one entry in a component's release history.
type Release struct {
	Version     string
	Timestamp   time.Time
	Description string
}

// Component is the AppStream entity asgen produces. One Package can yield
// several Components (e.g. a .desktop app plus a bundled codec).
type Component struct {
	ID        string // cid
	Kind      Kind
	Merge     MergeKind
	Name      map[string]string // locale -> text
	Summary   map[string]string
	Description map[string]string
	Categories  []string
	Icons       []Icon
	Launchables []Launchable
	Releases    []Release
	CustomTags  map[string]string
	ProvidesIDs []string // e.g. additional cids this component provides

	// PkgName is the owning package name, used to detect metainfo-duplicate-id.
	PkgName string

	// gcidSeed accumulates the bytes mixed into the GCID checksum, in the
	// order §3 requires (metainfo bytes, then each associated file).
	gcidSeed []byte
}

// MixSeed appends data to the component's GCID seed. The seed is the plain
// concatenation of every call's bytes in call order, so it is
// order-sensitive. Callers pass raw bytes (serialized metainfo, merged
// .desktop bytes, package version, summary strings, ...). No hashing happens
// here: ComputeGCID takes a single md5 over the whole concatenation, not a
// chained md5 of the previous hash and each new piece.
func (c *Component) MixSeed(data []byte) {
	c.gcidSeed = append(c.gcidSeed, data...)
}

// SeedBytes returns the accumulated seed bytes mixed into this component so
// far (metainfo content plus any merged files/version/strings).
func (c *Component) SeedBytes() []byte {
	return c.gcidSeed
}

// RequiresIcon reports whether this kind of component must carry an icon
// per the icon-size-coverage invariant in spec §8.
func (k Kind) RequiresIcon() bool {
	switch k {
	case KindOperatingSys, KindRepository:
		return false
	default:
		return true
	}
}

// Installable reports whether the kind represents something a user
// installs and launches, and therefore needs a launchable/category per the
// finalize() minimum-validation rule in spec §4.5.
func (k Kind) Installable() bool {
	switch k {
	case KindDesktopApp, KindConsoleApp, KindWebApp:
		return true
	default:
		return false
	}
}
