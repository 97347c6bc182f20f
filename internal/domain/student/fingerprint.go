package student

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is a stable digest over the fields that are visible on a
// student's target page. Two records have the same fingerprint if and only
// if they would render the same page.
type Fingerprint string

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f == ""
}

// String returns the hex form of the fingerprint.
func (f Fingerprint) String() string {
	return string(f)
}

// ComputeFingerprint digests the page-visible fields of a record: normalized
// name, level and studied minutes. Fields are length-prefixed so that no two
// distinct field tuples can collide by concatenation.
func ComputeFingerprint(r Record) Fingerprint {
	h, _ := blake2b.New256(nil) // error only possible with an oversized key
	for _, field := range []string{
		NormalizeName(r.Name),
		string(r.Level),
		fmt.Sprintf("%d", r.StudiedMinutes),
	} {
		fmt.Fprintf(h, "%d:%s", len(field), field)
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
