package update

import (
	"crypto"
	"errors"
	"fmt"

	// Register SHA-512 so HashSHA512.Hash() is available.
	_ "crypto/sha512"
)

// ErrUnknownValue is returned when parsing an unsupported enumeration value.
var ErrUnknownValue = errors.New("unknown value")

// UpdateKind classifies an update record.
type UpdateKind uint8

// Only minor updates are published.
const (
	UpdateMinor UpdateKind = iota
)

// String returns the wire form of the kind.
func (k UpdateKind) String() string {
	switch k {
	case UpdateMinor:
		return "minor"
	default:
		return fmt.Sprintf("UpdateKind(%d)", uint8(k))
	}
}

// Valid reports whether k is a known kind.
func (k UpdateKind) Valid() bool {
	return k == UpdateMinor
}

// ParseUpdateKind converts the wire form back into an UpdateKind.
func ParseUpdateKind(s string) (UpdateKind, error) {
	if s == "minor" {
		return UpdateMinor, nil
	}

	return 0, fmt.Errorf("update type %q: %w", s, ErrUnknownValue)
}

// PatchKind tells whether a patch replaces the installation or applies on top of it.
type PatchKind uint8

// Patch kinds. The zero value is PatchComplete.
const (
	PatchComplete PatchKind = iota
	PatchPartial
)

// String returns the wire form of the kind.
func (k PatchKind) String() string {
	switch k {
	case PatchComplete:
		return "complete"
	case PatchPartial:
		return "partial"
	default:
		return fmt.Sprintf("PatchKind(%d)", uint8(k))
	}
}

// Valid reports whether k is a known kind.
func (k PatchKind) Valid() bool {
	return k == PatchComplete || k == PatchPartial
}

// ParsePatchKind converts the wire form back into a PatchKind.
func ParsePatchKind(s string) (PatchKind, error) {
	switch s {
	case "complete":
		return PatchComplete, nil
	case "partial":
		return PatchPartial, nil
	default:
		return 0, fmt.Errorf("patch type %q: %w", s, ErrUnknownValue)
	}
}

// HashFunction names the digest used for hashValue.
type HashFunction uint8

// Only SHA-512 is supported.
const (
	HashSHA512 HashFunction = iota
)

// String returns the wire form of the hash function.
func (h HashFunction) String() string {
	switch h {
	case HashSHA512:
		return "sha512"
	default:
		return fmt.Sprintf("HashFunction(%d)", uint8(h))
	}
}

// Valid reports whether h is a known hash function.
func (h HashFunction) Valid() bool {
	return h == HashSHA512
}

// Hash returns the crypto implementation behind h.
func (h HashFunction) Hash() crypto.Hash {
	switch h {
	case HashSHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

// HexLen is the length of a hex-encoded digest produced by h.
func (h HashFunction) HexLen() int {
	if !h.Valid() {
		return 0
	}

	return 2 * h.Hash().Size()
}

// ParseHashFunction converts the wire form back into a HashFunction.
func ParseHashFunction(s string) (HashFunction, error) {
	if s == "sha512" {
		return HashSHA512, nil
	}

	return 0, fmt.Errorf("hash function %q: %w", s, ErrUnknownValue)
}
