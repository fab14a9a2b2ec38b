package describe

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mar-update-server/internal/domain/update"
	"github.com/oshokin/mar-update-server/internal/encoding/updatexml"
	"github.com/oshokin/mar-update-server/internal/mar"
)

// writeArchive stores a MAR archive with members in dir.
func writeArchive(t *testing.T, dir string, members ...mar.Member) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, mar.Create(&buf, members))

	path := filepath.Join(dir, "update.mar")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	return path
}

// TestRun_PrintsDocument verifies the document goes to stdout and logs stay on stderr.
func TestRun_PrintsDocument(t *testing.T) {
	t.Parallel()

	archivePath := writeArchive(t, t.TempDir(),
		mar.Member{Name: "updatev3.manifest", Data: []byte("type \"partial\"\n")},
		mar.Member{Name: "Contents/Resources/application.ini", Data: []byte("[App]\nVersion=1.2.3\nBuildID=999\n")},
	)

	var stdout, stderr bytes.Buffer

	err := Run(context.Background(), &Options{
		ArchivePath: archivePath,
		Check:       true,
		Stdout:      &stdout,
		Stderr:      &stderr,
	})
	require.NoError(t, err)

	catalog, err := updatexml.Unmarshal(stdout.Bytes())
	require.NoError(t, err)
	require.Len(t, catalog.Updates, 1)
	require.Equal(t, "999", catalog.Updates[0].BuildID)
	require.Contains(t, stdout.String(), `<patch type="partial"`)
	require.NotContains(t, stdout.String(), "Built update descriptor")
	require.Contains(t, stderr.String(), "Built update descriptor")
}

// TestRun_WritesOutputFile checks the document is saved verbatim when an output path is given.
func TestRun_WritesOutputFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := writeArchive(t, dir)
	outputPath := filepath.Join(dir, "update.xml")

	var stdout bytes.Buffer

	err := Run(context.Background(), &Options{
		ArchivePath: archivePath,
		OutputPath:  outputPath,
		Stdout:      &stdout,
		Stderr:      new(bytes.Buffer),
	})
	require.NoError(t, err)
	require.Empty(t, stdout.String())

	contents, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(contents, []byte("<updates>\n  <update type=\"minor\" displayVersion=\"2000.0a1\"")))
	require.True(t, bytes.HasSuffix(contents, []byte("</updates>")))
}

// TestRun_InvalidArchive ensures describing a non-MAR file fails.
func TestRun_InvalidArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "update.mar")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	err := Run(context.Background(), &Options{
		ArchivePath: path,
		Stdout:      new(bytes.Buffer),
		Stderr:      new(bytes.Buffer),
	})
	require.ErrorIs(t, err, mar.ErrInvalidArchive)
}

// TestCheckRoundTrip_EmptySequences verifies catalogs without updates or patches pass the check.
func TestCheckRoundTrip_EmptySequences(t *testing.T) {
	t.Parallel()

	catalogs := []*update.Catalog{
		{},
		{Updates: []update.Update{{
			Kind:            update.UpdateMinor,
			DisplayVersion:  update.DefaultVersion,
			AppVersion:      update.DefaultVersion,
			PlatformVersion: update.DefaultVersion,
			BuildID:         update.DefaultBuildID,
		}}},
	}

	for _, catalog := range catalogs {
		document, err := updatexml.Marshal(catalog)
		require.NoError(t, err)
		require.NoError(t, checkRoundTrip(document), string(document))
	}
}

// TestCheckRoundTrip_Mismatch ensures documents that do not render back identically are reported.
func TestCheckRoundTrip_Mismatch(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, checkRoundTrip([]byte("<updates>\n</updates>")), errRoundTripMismatch)

	hash := strings.Repeat("0", 128)
	document := `<updates><update type="minor" displayVersion="1" appVersion="1" platformVersion="1" buildID="1">` +
		`<patch type="complete" URL="u" hashFunction="sha512" hashValue="` + hash + `" size="1"/></update></updates>`
	require.ErrorIs(t, checkRoundTrip([]byte(document)), errRoundTripMismatch)

	require.ErrorIs(t, checkRoundTrip([]byte(`<updates><update type="major"/></updates>`)), updatexml.ErrInvalidDescriptor)
}
