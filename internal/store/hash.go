package store

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// HashContent returns the hex sha256 of content. Content files, assets and
// mirror rows all compare by this value.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ShortHash is the first 12 hex digits of HashContent, used for file names
func ShortHash(content []byte) string {
	return HashContent(content)[:12]
}

// matchesHash reports whether the file at path exists and hashes to hash.
// Unreadable files never match, so the caller rewrites them.
func matchesHash(path, hash string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	return hex.EncodeToString(h.Sum(nil)) == hash
}
