package descriptor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/mar-update-server/internal/digest"
	"github.com/oshokin/mar-update-server/internal/domain/update"
	"github.com/oshokin/mar-update-server/internal/logger"
	"github.com/oshokin/mar-update-server/internal/mar"
	"github.com/oshokin/mar-update-server/internal/metadata"
)

// Options are the configuration-derived parts of the descriptor.
// Empty fields fall back to the update package defaults.
type Options struct {
	// DownloadURL is advertised as the patch URL.
	DownloadURL string
	// DefaultVersion is used when the archive has no App.Version.
	DefaultVersion string
	// DefaultBuildID is used when the archive has no App.BuildID.
	DefaultBuildID string
}

// withDefaults returns a copy of o with empty fields filled in.
func (o Options) withDefaults() Options {
	if o.DownloadURL == "" {
		o.DownloadURL = update.DefaultDownloadURL
	}

	if o.DefaultVersion == "" {
		o.DefaultVersion = update.DefaultVersion
	}

	if o.DefaultBuildID == "" {
		o.DefaultBuildID = update.DefaultBuildID
	}

	return o
}

// Build derives the catalog for the archive at path.
// It fails when the path is not a readable regular file or not a MAR archive;
// missing or malformed metadata members only lead to defaults.
func Build(ctx context.Context, path string, opts Options) (*update.Catalog, error) {
	ctx = logger.WithName(ctx, "descriptor")
	opts = opts.withDefaults()
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("archive %s: %w", path, digest.ErrNotRegularFile)
	}

	hashFunction := update.HashSHA512

	logger.DebugKV(ctx, "Hashing archive", "path", path, "hash_function", hashFunction)

	sum, err := digest.File(ctx, path, hashFunction.Hash())
	if err != nil {
		return nil, fmt.Errorf("hash archive: %w", err)
	}

	if sum.Size != uint64(info.Size()) {
		logger.WarnKV(ctx, "Archive size changed while hashing",
			"path", path, "stat_size", info.Size(), "hashed_size", sum.Size)
	}

	archive, err := mar.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = archive.Close()
	}()

	meta := metadata.Extract(ctx, archive)
	version := meta.Version.Or(opts.DefaultVersion)

	u := update.Update{
		Kind:            update.UpdateMinor,
		DisplayVersion:  version,
		AppVersion:      version,
		PlatformVersion: version,
		BuildID:         meta.BuildID.Or(opts.DefaultBuildID),
		Patches: []update.Patch{{
			Kind:         meta.PatchKind.Or(update.PatchComplete),
			URL:          opts.DownloadURL,
			HashFunction: hashFunction,
			HashValue:    sum.Hex,
			Size:         sum.Size,
		}},
	}

	logger.InfoKV(ctx, "Built update descriptor",
		"path", path,
		"members", archive.Len(),
		"version", u.AppVersion,
		"build_id", u.BuildID,
		"patch_type", u.Patches[0].Kind,
		"size", sum.Size,
	)

	return &update.Catalog{Updates: []update.Update{u}}, nil
}
