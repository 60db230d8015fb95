package exporter

import (
	"bytes"
	"compress/gzip"

	"github.com/ulikunitz/xz"
)

// gzipBytes and xzBytes implement the "write three compression variants"
// requirement of spec §4.6 step 4. gzip is stdlib; xz has no stdlib
// equivalent, so this reaches for github.com/ulikunitz/xz, the pure-Go xz
// encoder already present (indirectly) in the retrieved pack's dependency
// surface (fyrsmithlabs-contextd's go.mod) and the natural choice since no
// example repo shells out to an external xz binary.
func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xzBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeCompressedPair writes base+".gz" and base+".xz", the catalog/hints
// compression mandate from spec §4.6 step 4.
func writeCompressedPair(base string, data []byte) error {
	gz, err := gzipBytes(data)
	if err != nil {
		return err
	}
	if err := writeFile(base+".gz", gz); err != nil {
		return err
	}

	xzData, err := xzBytes(data)
	if err != nil {
		return err
	}
	return writeFile(base+".xz", xzData)
}
