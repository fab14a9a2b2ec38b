package descriptor

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mar-update-server/internal/digest"
	"github.com/oshokin/mar-update-server/internal/domain/update"
	"github.com/oshokin/mar-update-server/internal/mar"
)

// writeArchive stores a MAR archive with members in a temporary file and returns its path and bytes.
func writeArchive(t *testing.T, members ...mar.Member) (string, []byte) {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, mar.Create(&buf, members))

	path := filepath.Join(t.TempDir(), "update.mar")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	return path, buf.Bytes()
}

// TestBuild_DefaultsWithoutMetadata verifies an archive without metadata members yields the defaults.
func TestBuild_DefaultsWithoutMetadata(t *testing.T) {
	t.Parallel()

	path, data := writeArchive(t, mar.Member{Name: "firefox/libxul.so", Data: []byte("binary")})

	catalog, err := Build(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, catalog.Updates, 1)

	sum := sha512.Sum512(data)
	want := update.Update{
		Kind:            update.UpdateMinor,
		DisplayVersion:  "2000.0a1",
		AppVersion:      "2000.0a1",
		PlatformVersion: "2000.0a1",
		BuildID:         "21181002100236",
		Patches: []update.Patch{{
			Kind:         update.PatchComplete,
			URL:          "http://localhost:8000/update.mar",
			HashFunction: update.HashSHA512,
			HashValue:    hex.EncodeToString(sum[:]),
			Size:         uint64(len(data)),
		}},
	}

	require.Equal(t, want, catalog.Updates[0])
	require.NoError(t, catalog.Validate())
}

// TestBuild_ExtractsMetadata checks the patch kind, version and build id are taken from the members.
func TestBuild_ExtractsMetadata(t *testing.T) {
	t.Parallel()

	path, data := writeArchive(t,
		mar.Member{Name: "updatev3.manifest", Data: []byte("type \"partial\"\npatch-if \"a\" \"b\"\n")},
		mar.Member{Name: "application.ini", Data: []byte("[App]\nVersion=1.2.3\nBuildID=999\n")},
	)

	catalog, err := Build(context.Background(), path, Options{DownloadURL: "https://updates.example.org/update.mar"})
	require.NoError(t, err)

	u := catalog.Updates[0]
	require.Equal(t, "1.2.3", u.DisplayVersion)
	require.Equal(t, "1.2.3", u.AppVersion)
	require.Equal(t, "1.2.3", u.PlatformVersion)
	require.Equal(t, "999", u.BuildID)
	require.Len(t, u.Patches, 1)
	require.Equal(t, update.PatchPartial, u.Patches[0].Kind)
	require.Equal(t, "https://updates.example.org/update.mar", u.Patches[0].URL)
	require.Equal(t, uint64(len(data)), u.Patches[0].Size)
}

// TestBuild_ConfiguredDefaults ensures configured defaults replace the built-in placeholders.
func TestBuild_ConfiguredDefaults(t *testing.T) {
	t.Parallel()

	path, _ := writeArchive(t, mar.Member{Name: "application.ini", Data: []byte("[App]\nBuildID=42\n")})

	catalog, err := Build(context.Background(), path, Options{DefaultVersion: "99.0", DefaultBuildID: "1"})
	require.NoError(t, err)
	require.Equal(t, "99.0", catalog.Updates[0].AppVersion)
	require.Equal(t, "42", catalog.Updates[0].BuildID)
}

// TestBuild_FatalErrors covers paths that must prevent the server from starting.
func TestBuild_FatalErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Build(context.Background(), filepath.Join(dir, "missing.mar"), Options{})
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Build(context.Background(), dir, Options{})
	require.ErrorIs(t, err, digest.ErrNotRegularFile)

	notMAR := filepath.Join(dir, "update.zip")
	require.NoError(t, os.WriteFile(notMAR, []byte("PK\x03\x04 definitely a zip file"), 0o600))

	_, err = Build(context.Background(), notMAR, Options{})
	require.ErrorIs(t, err, mar.ErrInvalidArchive)
}
