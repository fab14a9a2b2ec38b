package metadata

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/ini.v1"

	"github.com/oshokin/mar-update-server/internal/domain/update"
	"github.com/oshokin/mar-update-server/internal/logger"
)

const (
	// ManifestMember is the member whose first line declares the patch type.
	ManifestMember = "updatev3.manifest"

	// partialManifestLine marks a partial patch.
	partialManifestLine = `type "partial"`

	// appSection holds the version keys in application.ini.
	appSection = "App"
	versionKey = "Version"
	buildIDKey = "BuildID"

	// maxApplicationIniSize bounds how much of application.ini is read.
	maxApplicationIniSize = 1 << 20
)

// ApplicationIniMembers are the accepted locations of application.ini,
// in lookup order. The second one is used by macOS bundle layouts.
//
//nolint:gochecknoglobals // Read-only lookup table.
var ApplicationIniMembers = []string{
	"application.ini",
	"Contents/Resources/application.ini",
}

var errSectionMissing = errors.New("section missing")

// MemberOpener gives access to archive members by name.
type MemberOpener interface {
	Open(name string) (io.ReadCloser, error)
}

// Metadata is what could be recovered from the archive members.
type Metadata struct {
	// PatchKind is present when the manifest could be read.
	PatchKind Field[update.PatchKind]
	// Version is App.Version from application.ini.
	Version Field[string]
	// BuildID is App.BuildID from application.ini.
	BuildID Field[string]
}

// Extract looks up the manifest and application.ini members of src.
// Lookups are independent and never fail, absent values stay None.
func Extract(ctx context.Context, src MemberOpener) Metadata {
	ctx = logger.WithName(ctx, "metadata")

	var m Metadata

	m.PatchKind = patchKind(ctx, src)
	m.Version, m.BuildID = applicationInfo(ctx, src)

	return m
}

// patchKind reads the first manifest line.
func patchKind(ctx context.Context, src MemberOpener) Field[update.PatchKind] {
	rc, err := src.Open(ManifestMember)
	if err != nil {
		logger.DebugKV(ctx, "Manifest is not available", "member", ManifestMember, "error", err)
		return None[update.PatchKind]()
	}

	defer func() {
		_ = rc.Close()
	}()

	line, err := firstLine(rc)
	if err != nil {
		logger.WarnKV(ctx, "Unable to read manifest", "member", ManifestMember, "error", err)
		return None[update.PatchKind]()
	}

	if line == partialManifestLine {
		return Some(update.PatchPartial)
	}

	return Some(update.PatchComplete)
}

// firstLine returns the first line of r without its terminator.
func firstLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return scanner.Text(), nil
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}

	return "", nil
}

// applicationInfo reads App.Version and App.BuildID from the first
// application.ini member present in src.
func applicationInfo(ctx context.Context, src MemberOpener) (version, buildID Field[string]) {
	version, buildID = None[string](), None[string]()

	for _, name := range ApplicationIniMembers {
		rc, err := src.Open(name)
		if err != nil {
			logger.DebugKV(ctx, "Application descriptor is not available", "member", name, "error", err)
			continue
		}

		section, err := loadAppSection(rc)

		_ = rc.Close()

		if err != nil {
			logger.WarnKV(ctx, "Unable to parse application descriptor", "member", name, "error", err)
			return version, buildID
		}

		if section.HasKey(versionKey) {
			version = Some(section.Key(versionKey).Value())
		}

		if section.HasKey(buildIDKey) {
			buildID = Some(section.Key(buildIDKey).Value())
		}

		logger.DebugKV(ctx, "Read application descriptor", "member", name,
			"has_version", version.Present(), "has_build_id", buildID.Present())

		return version, buildID
	}

	return version, buildID
}

// loadAppSection parses r as INI and returns its App section.
func loadAppSection(r io.Reader) (*ini.Section, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxApplicationIniSize))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	// Values are taken literally: no inline comments, continuations or %(key)s substitution.
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		IgnoreContinuation:  true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	section, err := file.GetSection(appSection)
	if err != nil {
		return nil, fmt.Errorf("[%s]: %w", appSection, errSectionMissing)
	}

	return section, nil
}
