package update

import (
	"errors"
	"fmt"
	"slices"
)

const (
	// DefaultVersion is published when the archive carries no version.
	DefaultVersion = "2000.0a1"
	// DefaultBuildID is published when the archive carries no build id.
	DefaultBuildID = "21181002100236"
	// DefaultDownloadURL is where the archive is advertised by default.
	DefaultDownloadURL = "http://localhost:8000/update.mar"
)

var (
	// ErrInvalidHash is returned when a hash value does not match its hash function.
	ErrInvalidHash = errors.New("invalid hash value")
	// ErrInvalidKind is returned for enumeration values outside the known set.
	ErrInvalidKind = errors.New("invalid kind")
)

// Patch is one downloadable payload of an update.
type Patch struct {
	// Kind is complete unless the archive manifest declares a partial patch.
	Kind PatchKind
	// URL is where clients download the archive.
	URL string
	// HashFunction is the digest algorithm of HashValue.
	HashFunction HashFunction
	// HashValue is the lowercase hex digest of the whole archive.
	HashValue string
	// Size is the byte length of the whole archive.
	Size uint64
}

// Validate checks the enumerations and the shape of the hash value.
func (p *Patch) Validate() error {
	if !p.Kind.Valid() {
		return fmt.Errorf("patch %s: %w", p.Kind, ErrInvalidKind)
	}

	if !p.HashFunction.Valid() {
		return fmt.Errorf("patch %s: %w", p.HashFunction, ErrInvalidKind)
	}

	if len(p.HashValue) != p.HashFunction.HexLen() {
		return fmt.Errorf("%w: %d characters, want %d", ErrInvalidHash, len(p.HashValue), p.HashFunction.HexLen())
	}

	for _, c := range []byte(p.HashValue) {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q is not lowercase hex", ErrInvalidHash, c)
		}
	}

	return nil
}

// Update is one update record offered to clients.
type Update struct {
	// Kind is always minor.
	Kind UpdateKind
	// DisplayVersion is the version shown to users.
	DisplayVersion string
	// AppVersion is the application version.
	AppVersion string
	// PlatformVersion is the platform (Gecko) version.
	PlatformVersion string
	// BuildID identifies the build of the update.
	BuildID string
	// Patches are the payloads of the update.
	Patches []Patch
}

// Validate checks the update kind and every patch.
func (u *Update) Validate() error {
	if !u.Kind.Valid() {
		return fmt.Errorf("update %s: %w", u.Kind, ErrInvalidKind)
	}

	for i := range u.Patches {
		if err := u.Patches[i].Validate(); err != nil {
			return fmt.Errorf("patch #%d: %w", i, err)
		}
	}

	return nil
}

// Catalog is the root document served as update.xml.
type Catalog struct {
	// Updates are the offered update records.
	Updates []Update
}

// Validate checks every update of the catalog.
func (c *Catalog) Validate() error {
	for i := range c.Updates {
		if err := c.Updates[i].Validate(); err != nil {
			return fmt.Errorf("update #%d: %w", i, err)
		}
	}

	return nil
}

// Clone returns a deep copy so callers never share slices with the original.
func (c *Catalog) Clone() *Catalog {
	if c == nil {
		return nil
	}

	updates := make([]Update, len(c.Updates))
	for i, u := range c.Updates {
		u.Patches = slices.Clone(u.Patches)
		updates[i] = u
	}

	return &Catalog{Updates: updates}
}
