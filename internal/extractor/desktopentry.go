package extractor

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/asgen-go/asgen/internal/model"
)

// DesktopEntry holds the subset of a freedesktop .desktop file asgen merges
// into a Component: translated Name/Comment, a logical Icon reference, the
// semicolon-separated Categories list, and the NoDisplay flag that excludes
// a launcher entry from being treated as a standalone app.
type DesktopEntry struct {
	Name       map[string]string
	Comment    map[string]string
	Icon       string
	Categories []string
	NoDisplay  bool
}

// ParseDesktopFile parses a .desktop file's [Desktop Entry] group with
// gopkg.in/ini.v1, the same ini-style parser asgen uses for XDG
// index.theme files (internal/icontheme) since both are freedesktop
// key-file documents.
func ParseDesktopFile(data []byte) (*DesktopEntry, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse desktop entry: %w", err)
	}
	sec, err := f.GetSection("Desktop Entry")
	if err != nil {
		return nil, fmt.Errorf("desktop entry missing [Desktop Entry] group: %w", err)
	}

	entry := &DesktopEntry{Name: map[string]string{}, Comment: map[string]string{}}
	for _, key := range sec.Keys() {
		name := key.Name()
		switch {
		case name == "Name" || strings.HasPrefix(name, "Name["):
			entry.Name[desktopLocale(name)] = key.Value()
		case name == "Comment" || strings.HasPrefix(name, "Comment["):
			entry.Comment[desktopLocale(name)] = key.Value()
		case name == "Icon":
			entry.Icon = strings.TrimSpace(key.Value())
		case name == "Categories":
			entry.Categories = splitSemicolonList(key.Value())
		case name == "NoDisplay":
			entry.NoDisplay = strings.EqualFold(strings.TrimSpace(key.Value()), "true")
		}
	}
	return entry, nil
}

func desktopLocale(key string) string {
	start := strings.IndexByte(key, '[')
	if start < 0 {
		return "C"
	}
	return strings.TrimSuffix(key[start+1:], "]")
}

func splitSemicolonList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// mergeDesktopEntry folds a parsed .desktop file into a metainfo-derived
// component, filling in only fields the metainfo file left empty, and mixes
// the file's raw bytes into the component's GCID seed (spec §3/§4.5).
func mergeDesktopEntry(c *model.Component, entry *DesktopEntry, raw []byte) {
	if len(c.Name) == 0 && len(entry.Name) > 0 {
		c.Name = entry.Name
	}
	if len(c.Summary) == 0 && len(entry.Comment) > 0 {
		c.Summary = entry.Comment
	}
	if len(c.Categories) == 0 && len(entry.Categories) > 0 {
		c.Categories = entry.Categories
	}
	if !hasIcon(c) && entry.Icon != "" {
		c.Icons = append(c.Icons, model.Icon{Kind: model.IconKindStock, Name: entry.Icon})
	}
	c.MixSeed(raw)
}

func hasIcon(c *model.Component) bool {
	return len(c.Icons) > 0
}
