// Package diff detects which entries of a text collection changed since the
// previous run, so unchanged content is never re-translated. Prior snapshots
// are persisted through a store.Storage backend.
package diff

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Digest selects the checksum algorithm.
type Digest string

const (
	DigestMD5    Digest = "md5"
	DigestSHA1   Digest = "sha1"
	DigestSHA256 Digest = "sha256"
)

// Checksummer computes content checksums under a fixed set of options, so
// every checksum within a run is comparable.
type Checksummer struct {
	digest     Digest
	normalize  bool
	includeKey bool
}

// NewChecksummer validates the digest name. An empty digest defaults to
// sha256.
func NewChecksummer(digest Digest, normalize, includeKey bool) (*Checksummer, error) {
	switch digest {
	case "":
		digest = DigestSHA256
	case DigestMD5, DigestSHA1, DigestSHA256:
	default:
		return nil, fmt.Errorf("unsupported digest %q", digest)
	}
	return &Checksummer{digest: digest, normalize: normalize, includeKey: includeKey}, nil
}

// Sum returns the hex checksum for one entry. With normalization enabled,
// whitespace runs collapse to single spaces and the text is NFC-normalized
// first, so whitespace-only edits do not count as changes.
func (c *Checksummer) Sum(key, text string) string {
	if c.normalize {
		text = norm.NFC.String(strings.Join(strings.Fields(text), " "))
	}
	if c.includeKey {
		text = key + ":" + text
	}

	switch c.digest {
	case DigestMD5:
		return fmt.Sprintf("%x", md5.Sum([]byte(text)))
	case DigestSHA1:
		return fmt.Sprintf("%x", sha1.Sum([]byte(text)))
	default:
		sum := sha256.Sum256([]byte(text))
		return hex.EncodeToString(sum[:])
	}
}

// SumAll checksums every entry of a text map.
func (c *Checksummer) SumAll(texts map[string]string) map[string]string {
	out := make(map[string]string, len(texts))
	for k, v := range texts {
		out[k] = c.Sum(k, v)
	}
	return out
}
