package model

import (
	"crypto/md5" //nolint:gosec // GCID checksum is a content-addressing hash, not a security boundary.
	"fmt"
	"strings"
)

// tldSet lists the reverse-domain TLDs asgen recognizes when deciding a
// GCID's path prefix, mirroring the common AppStream cid conventions.
var tldSet = map[string]bool{
	"org": true, "com": true, "net": true, "io": true, "edu": true,
	"gov": true, "de": true, "fr": true, "uk": true, "ru": true,
}

// ComputeGCID derives the Global Component ID for a component given its
// accumulated seed bytes (see Component.MixSeed). The shape is
// "<prefix>/<mid>/<cid>/<md5-hex>" per spec §3.
func ComputeGCID(cid string, seed []byte) string {
	sum := md5.Sum(seed) //nolint:gosec
	checksum := fmt.Sprintf("%x", sum)
	prefix, mid := gcidPrefixParts(cid)
	return fmt.Sprintf("%s/%s/%s/%s", prefix, mid, cid, checksum)
}

// gcidPrefixParts computes the "prefix/mid" portion of a GCID path. If the
// cid's first dot-separated part is a recognized TLD, the prefix is that
// reverse-domain component and mid is the second part. Otherwise the prefix
// is the cid's first letter (lowercased) and mid is the first two letters.
func gcidPrefixParts(cid string) (prefix, mid string) {
	parts := strings.SplitN(cid, ".", 3)
	if len(parts) >= 2 && tldSet[strings.ToLower(parts[0])] {
		return strings.ToLower(parts[0]), parts[1]
	}

	lower := strings.ToLower(cid)
	if len(lower) == 0 {
		return "x", "xx"
	}
	first := lower[:1]
	two := first
	if len(lower) >= 2 {
		two = lower[:2]
	}
	return first, two
}

// CidFromGCID extracts the component id embedded in a GCID path, inverting
// ComputeGCID. It is the "cidFromGcid" operation referenced by spec §8's
// round-trip property.
func CidFromGCID(gcid string) (string, error) {
	parts := strings.Split(gcid, "/")
	if len(parts) != 4 {
		return "", fmt.Errorf("malformed gcid %q: expected 4 path segments", gcid)
	}
	return parts[2], nil
}

// GCIDDir returns the media-pool directory name for a GCID, which is the
// GCID itself (used as a relative path under export/media/pool/).
func GCIDDir(gcid string) string {
	return gcid
}
