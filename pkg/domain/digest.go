package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DigestSize is the byte length of an attestation or certification digest.
const DigestSize = sha256.Size

// Digest is a fixed-size content digest. The ledger stores digests supplied
// by callers for off-ledger attestation documents; the only digests it
// computes itself are HashText over lot numbers and recall reasons.
type Digest [DigestSize]byte

// HashText returns the SHA-256 digest of the supplied text.
func HashText(text string) Digest {
	return Digest(sha256.Sum256([]byte(text)))
}

// HashBytes returns the SHA-256 digest of raw document content.
func HashBytes(b []byte) Digest {
	return Digest(sha256.Sum256(b))
}

// IsZero reports whether the digest is all zero bytes.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest decodes a lowercase hex digest string.
func ParseDigest(s string) (Digest, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("parse digest: %w", err)
	}
	if len(raw) != DigestSize {
		return Digest{}, fmt.Errorf("parse digest: expected %d bytes, got %d", DigestSize, len(raw))
	}
	var d Digest
	copy(d[:], raw)
	return d, nil
}

// MarshalJSON encodes the digest as a hex string so snapshots stay readable.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a hex string digest.
func (d *Digest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDigest(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
