package pipeline

import (
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// ContentHashHex computes the BLAKE3 hash of content and returns it as hex.
func ContentHashHex(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Slugify lowercases s and reduces it to [a-z0-9-], at most 50 characters.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// GraphID derives a stable graph ID from the title (or file name) and the
// content hash, e.g. "cave-of-echoes-1a2b3c4d".
func GraphID(title, filename, contentHash string) string {
	base := Slugify(title)
	if base == "" {
		base = Slugify(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	}
	if base == "" {
		base = "graph"
	}
	if len(contentHash) > 8 {
		contentHash = contentHash[:8]
	}
	if contentHash == "" {
		return base
	}
	return base + "-" + contentHash
}
