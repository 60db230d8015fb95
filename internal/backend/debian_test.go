package backend

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePackagesIndex = `Package: foo
Version: 1.0
Architecture: amd64
Maintainer: Jane Doe <jane@example.com>
Filename: pool/f/foo/foo_1.0_amd64.tar.gz
Description: a foo app
 Longer description of foo
 spanning multiple lines.
Gstreamer-Decoders: video/x-h264,audio/mpeg

Package: bar
Version: 2.0
Architecture: amd64
Filename: pool/b/bar/bar_2.0_amd64.tar.gz
Description: a bar tool
`

func writePoolArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

func writePackagesIndex(t *testing.T, root, suite, section, arch string) {
	t.Helper()
	dir := filepath.Join(root, "dists", suite, section, "binary-"+arch)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(samplePackagesIndex))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Packages.gz"), buf.Bytes(), 0o644))
}

func TestParseControlStanzas(t *testing.T) {
	stanzas, err := parseControlStanzas(bytes.NewReader([]byte(samplePackagesIndex)))
	require.NoError(t, err)
	require.Len(t, stanzas, 2)

	assert.Equal(t, "foo", stanzas[0]["Package"])
	assert.Equal(t, "a foo app\nLonger description of foo\nspanning multiple lines.", stanzas[0]["Description"])
	assert.Equal(t, "bar", stanzas[1]["Package"])
}

func TestPackagesFor(t *testing.T) {
	root := t.TempDir()
	writePackagesIndex(t, root, "stable", "main", "amd64")
	writePoolArchive(t, filepath.Join(root, "pool/f/foo/foo_1.0_amd64.tar.gz"), map[string]string{
		"./usr/share/metainfo/org.example.Foo.metainfo.xml": "<component/>",
	})
	writePoolArchive(t, filepath.Join(root, "pool/b/bar/bar_2.0_amd64.tar.gz"), map[string]string{
		"./usr/bin/bar": "binary",
	})

	b := NewDebianBackend(root)
	pkgs, err := b.PackagesFor(context.Background(), "stable", "main", "amd64", true)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)

	foo := pkgs[0]
	assert.Equal(t, "foo", foo.Name())
	assert.Equal(t, "foo/1.0/amd64", foo.Pkid())
	assert.Equal(t, map[string]string{"C": "a foo app"}, foo.Summary())
	require.NotNil(t, foo.Gst())
	assert.Equal(t, []string{"video/x-h264", "audio/mpeg"}, foo.Gst().Decoders)

	contents := foo.Contents()
	assert.Contains(t, contents, "/usr/share/metainfo/org.example.Foo.metainfo.xml")

	data, err := foo.GetFileData("/usr/share/metainfo/org.example.Foo.metainfo.xml")
	require.NoError(t, err)
	assert.Equal(t, "<component/>", string(data))
}

func TestHasChanges(t *testing.T) {
	root := t.TempDir()
	writePackagesIndex(t, root, "stable", "main", "amd64")

	b := NewDebianBackend(root)
	changed, mtime, err := b.HasChanges(context.Background(), "stable", "main", "amd64", 0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotZero(t, mtime)

	changed, _, err = b.HasChanges(context.Background(), "stable", "main", "amd64", mtime)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPackageForFile(t *testing.T) {
	root := t.TempDir()
	archivePath := filepath.Join(root, "custom", "foo_3.0_arm64.tar.gz")
	writePoolArchive(t, archivePath, map[string]string{
		"./usr/share/applications/foo.desktop": "[Desktop Entry]\nName=Foo\n",
	})

	b := NewDebianBackend(root)
	pkg, err := b.PackageForFile(context.Background(), archivePath, "", "")
	require.NoError(t, err)
	assert.Equal(t, "foo", pkg.Name())
	assert.Equal(t, "3.0", pkg.Version())
	assert.Equal(t, "arm64", pkg.Arch())

	data, err := pkg.GetFileData("/usr/share/applications/foo.desktop")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Name=Foo")
}

func TestParsePoolFilename(t *testing.T) {
	name, version, arch := parsePoolFilename("foo_1.2.3_amd64.tar.gz")
	assert.Equal(t, "foo", name)
	assert.Equal(t, "1.2.3", version)
	assert.Equal(t, "amd64", arch)
}
