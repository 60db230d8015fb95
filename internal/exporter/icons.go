package exporter

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type iconTarEntry struct {
	tarName string
	fsPath  string
}

// buildIconTarball implements spec §4.6 step 5: walk every referenced GCID
// once (deduplicated), collect the icon files cached for sizeDir, sort them
// stably by the path they'll carry inside the tarball, and write
// icons-<size>.tar.gz. Grounded on archive/tar + compress/gzip the way
// moby-moby's archive package builds build-context tarballs: one
// tar.Writer wrapping one gzip.Writer, headers written immediately before
// each file's bytes. No tarball is written when a size has nothing cached.
func buildIconTarball(mediaRoot string, gcids []string, sizeDir, destPath string) error {
	var entries []iconTarEntry
	seen := make(map[string]bool, len(gcids))
	for _, gcid := range gcids {
		if seen[gcid] {
			continue
		}
		seen[gcid] = true

		dir := filepath.Join(mediaRoot, gcid, "icons", sizeDir)
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			entries = append(entries, iconTarEntry{
				tarName: filepath.ToSlash(filepath.Join(sizeDir, f.Name())),
				fsPath:  filepath.Join(dir, f.Name()),
			})
		}
	}
	if len(entries) == 0 {
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].tarName < entries[j].tarName })

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create icon tarball dir: %w", err)
	}
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create icon tarball: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		data, err := os.ReadFile(e.fsPath)
		if err != nil {
			return fmt.Errorf("read icon %s: %w", e.fsPath, err)
		}
		hdr := &tar.Header{
			Name: e.tarName,
			Mode: 0o644,
			Size: int64(len(data)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header for %s: %w", e.tarName, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("write tar data for %s: %w", e.tarName, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar writer: %w", err)
	}
	return gz.Close()
}
