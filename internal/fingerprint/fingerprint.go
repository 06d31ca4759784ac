// Package fingerprint computes stable content digests used for change
// detection between what locbak last wrote and what is on disk now.
//
// A fingerprint is the first 128 bits of the BLAKE3 hash of the content,
// hex encoded (32 lowercase characters). Strings are hashed as their raw
// UTF-8 bytes, so String(s) == File(...) for a file holding exactly s.
// Fingerprints are not a security boundary.
package fingerprint

import (
	"encoding/hex"
	"io"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/thoreinstein/locbak/internal/errors"
)

// Size is the fingerprint length in bytes before hex encoding.
const Size = 16

// Hasher accumulates written bytes into a fingerprint.
// It is useful for hashing content while it is copied elsewhere.
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

// Write implements io.Writer. It never returns an error.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum returns the fingerprint of everything written so far.
func (h *Hasher) Sum() string {
	sum := h.h.Sum(nil)
	return hex.EncodeToString(sum[:Size])
}

// String returns the fingerprint of s.
func String(s string) string {
	h := NewHasher()
	_, _ = io.WriteString(h, s)
	return h.Sum()
}

// Bytes returns the fingerprint of b.
func Bytes(b []byte) string {
	h := NewHasher()
	_, _ = h.Write(b)
	return h.Sum()
}

// Reader returns the fingerprint of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := NewHasher()
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.Wrap(err, "reading content")
	}
	return h.Sum(), nil
}

// File returns the fingerprint of the file at path on fsys.
func File(fsys afero.Fs, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file")
	}
	defer f.Close()

	return Reader(f)
}

// Valid reports whether s has the shape of a fingerprint.
func Valid(s string) bool {
	if len(s) != hex.EncodedLen(Size) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
