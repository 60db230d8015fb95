// Package icontheme parses XDG icon-theme index files into the ordered
// directory model spec §4.3 describes, and answers the two queries the icon
// handler needs: whether a directory matches a requested size, and which
// candidate filenames to probe for a logical icon name.
//
// Index files are freedesktop .ini documents ("[Icon Theme]", "[48x48/apps]",
// ...), so parsing is grounded on gopkg.in/ini.v1 the way dittofs reaches for
// it to read its own section-based config.
package icontheme

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/ini.v1"
)

// DirType is the directory sizing behavior declared by a theme's index file.
type DirType string

const (
	DirFixed     DirType = "Fixed"
	DirScalable  DirType = "Scalable"
	DirThreshold DirType = "Threshold"
)

// Directory is one icon-theme directory record (spec §4.3).
type Directory struct {
	Path      string
	Type      DirType
	Size      int
	MinSize   int
	MaxSize   int
	Threshold int
	Scale     int
}

// nominalSize is the size directoryMatchesSize and theme ordering reason
// about, matching the index file's own "Size" key.
func (d Directory) nominalSize() int { return d.Size }

// Theme is a parsed icon-theme index: its directories in ascending nominal
// size order, "symbolic/" entries already filtered out (spec §4.3).
type Theme struct {
	Name          string
	Directories   []Directory
}

// extensions is the ordered set matchingFilenames tries per directory
// (spec §4.3).
var extensions = []string{"png", "svgz", "svg", "xpm"}

// Parse reads an icon-theme index.theme file's content and builds its
// ordered Theme model.
func Parse(name string, data []byte) (*Theme, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse icon theme index %q: %w", name, err)
	}

	iconTheme := file.Section("Icon Theme")
	dirNames := splitCommaList(iconTheme.Key("Directories").String())

	var dirs []Directory
	for _, dirName := range dirNames {
		if strings.HasPrefix(dirName, "symbolic/") {
			continue
		}
		sec, err := file.GetSection(dirName)
		if err != nil {
			// Declared in Directories but no matching section: skip rather
			// than fail the whole theme.
			continue
		}
		dirs = append(dirs, directoryFromSection(dirName, sec))
	}

	sort.SliceStable(dirs, func(i, j int) bool {
		return dirs[i].nominalSize() < dirs[j].nominalSize()
	})

	return &Theme{Name: name, Directories: dirs}, nil
}

func directoryFromSection(path string, sec *ini.Section) Directory {
	size := sec.Key("Size").MustInt(0)
	d := Directory{
		Path:      path,
		Type:      DirType(sec.Key("Type").MustString(string(DirThreshold))),
		Size:      size,
		MinSize:   sec.Key("MinSize").MustInt(size),
		MaxSize:   sec.Key("MaxSize").MustInt(size),
		Threshold: sec.Key("Threshold").MustInt(2),
		Scale:     sec.Key("Scale").MustInt(1),
	}
	switch d.Type {
	case DirFixed, DirScalable, DirThreshold:
	default:
		d.Type = DirThreshold
	}
	return d
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DirectoryMatchesSize implements directoryMatchesSize (spec §4.3).
func DirectoryMatchesSize(dir Directory, wantSize, wantScale int, relaxed bool) bool {
	if dir.Scale != wantScale {
		return false
	}
	switch dir.Type {
	case DirFixed:
		return dir.Size == wantSize
	case DirScalable:
		return dir.MinSize <= wantSize && wantSize <= dir.MaxSize
	case DirThreshold:
		if relaxed {
			return dir.Size >= wantSize
		}
		diff := dir.Size - wantSize
		if diff < 0 {
			diff = -diff
		}
		return diff <= dir.Threshold
	default:
		return false
	}
}

// MatchingFilenames implements matchingFilenames (spec §4.3): candidate
// "/usr/share/icons/<theme>/<dir>/<icon>.<ext>" paths across every matching
// directory, directory-then-extension order.
func (t *Theme) MatchingFilenames(iconName string, size, scale int, relaxed bool) []string {
	var out []string
	for _, dir := range t.Directories {
		if !DirectoryMatchesSize(dir, size, scale, relaxed) {
			continue
		}
		for _, ext := range extensions {
			out = append(out, fmt.Sprintf("/usr/share/icons/%s/%s/%s.%s", t.Name, dir.Path, iconName, ext))
		}
	}
	return out
}

// Cache memoizes parsed Theme values keyed by theme name, avoiding a
// re-parse of the same index.theme file across every package in a run.
type Cache struct {
	lru *lru.Cache[string, *Theme]
}

// NewCache creates a theme cache holding up to capacity parsed themes.
func NewCache(capacity int) (*Cache, error) {
	c, err := lru.New[string, *Theme](capacity)
	if err != nil {
		return nil, fmt.Errorf("create icon theme cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// GetOrParse returns the cached Theme for name, parsing and caching it via
// load on a miss.
func (c *Cache) GetOrParse(name string, load func() ([]byte, error)) (*Theme, error) {
	if t, ok := c.lru.Get(name); ok {
		return t, nil
	}
	data, err := load()
	if err != nil {
		return nil, err
	}
	theme, err := Parse(name, data)
	if err != nil {
		return nil, err
	}
	c.lru.Add(name, theme)
	return theme, nil
}

// ParseSizeKey parses the "WxH" portion asgen uses to label icon sizes
// (e.g. config keys, directory names) into integers. Keys without a "WxH"
// shape, such as the bare directory name "scalable", return an error.
func ParseSizeKey(key string) (width, height int, err error) {
	parts := strings.SplitN(key, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("not a WxH size key: %q", key)
	}
	width, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad width in %q: %w", key, err)
	}
	height, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad height in %q: %w", key, err)
	}
	return width, height, nil
}
