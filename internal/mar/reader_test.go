package mar

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

var errTestDisk = errors.New("disk read failed")

// brokenContentReader fails every read inside the member area of an archive.
type brokenContentReader struct {
	*bytes.Reader

	// contentEnd is where the member contents end and the index begins.
	contentEnd int64
}

// ReadAt fails for offsets inside the member contents.
func (r brokenContentReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= headerSize && off < r.contentEnd {
		return 0, errTestDisk
	}

	return r.Reader.ReadAt(p, off)
}

// build returns the bytes of an archive holding members.
func build(t *testing.T, members ...Member) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Create(&buf, members))

	return buf.Bytes()
}

// readMember returns the decompressed content of the named member.
func readMember(t *testing.T, a *Archive, name string) string {
	t.Helper()

	rc, err := a.Open(name)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, rc.Close())
	}()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	return string(data)
}

// TestCreateOpen_Roundtrip verifies members written by Create are listed and readable by name.
func TestCreateOpen_Roundtrip(t *testing.T) {
	t.Parallel()

	data := build(t,
		Member{Name: "updatev3.manifest", Data: []byte("type \"complete\"\n")},
		Member{Name: "Contents/Resources/application.ini", Data: []byte("[App]\nVersion=1.2.3\n"), Flags: 0o755},
		Member{Name: "empty", Data: nil},
	)

	a, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, 3, a.Len())

	var names []string
	for e := range a.Members() {
		names = append(names, e.Name)
	}

	require.Equal(t, []string{"updatev3.manifest", "Contents/Resources/application.ini", "empty"}, names)

	e, ok := a.Lookup("Contents/Resources/application.ini")
	require.True(t, ok)
	require.Equal(t, uint32(0o755), e.Flags)
	require.Equal(t, uint32(len("[App]\nVersion=1.2.3\n")), e.Size)

	require.Equal(t, "type \"complete\"\n", readMember(t, a, "updatev3.manifest"))
	require.Equal(t, "[App]\nVersion=1.2.3\n", readMember(t, a, "Contents/Resources/application.ini"))
	require.Empty(t, readMember(t, a, "empty"))
	require.NoError(t, a.Close())
}

// TestOpen_FromPath checks opening by path and reporting missing members.
func TestOpen_FromPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "update.mar")
	require.NoError(t, os.WriteFile(path, build(t, Member{Name: "a", Data: []byte("x")}), 0o600))

	a, err := Open(path)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, a.Close())
	}()

	_, err = a.Open("missing")
	require.ErrorIs(t, err, ErrMemberNotFound)

	_, ok := a.Lookup("missing")
	require.False(t, ok)
}

// TestOpen_MissingFile ensures a missing path surfaces the I/O error.
func TestOpen_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "nope.mar"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestMembers_StopsEarly verifies the iterator honours an early break.
func TestMembers_StopsEarly(t *testing.T) {
	t.Parallel()

	data := build(t, Member{Name: "a"}, Member{Name: "b"}, Member{Name: "c"})

	a, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	count := 0
	for range a.Members() {
		count++
		if count == 2 {
			break
		}
	}

	require.Equal(t, 2, count)
}

// TestOpenEntry_DecompressesXZ checks that XZ-compressed members are transparently decompressed.
func TestOpenEntry_DecompressesXZ(t *testing.T) {
	t.Parallel()

	var compressed bytes.Buffer

	zw, err := xz.NewWriter(&compressed)
	require.NoError(t, err)
	_, err = zw.Write([]byte("type \"partial\"\nadd \"foo\"\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	data := build(t, Member{Name: "updatev3.manifest", Data: compressed.Bytes()})

	a, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, "type \"partial\"\nadd \"foo\"\n", readMember(t, a, "updatev3.manifest"))
}

// TestNewReader_RejectsMalformed covers the layout checks of the header and index.
func TestNewReader_RejectsMalformed(t *testing.T) {
	t.Parallel()

	valid := build(t, Member{Name: "a", Data: []byte("abc")})

	badMagic := bytes.Clone(valid)
	copy(badMagic, "ZIP1")

	badIndexOffset := bytes.Clone(valid)
	binary.BigEndian.PutUint32(badIndexOffset[4:], uint32(len(valid)+10))

	// Index size points past the end of file.
	badIndexSize := bytes.Clone(valid)
	binary.BigEndian.PutUint32(badIndexSize[8+3:], 1000)

	// Entry offset points past the end of file.
	badEntry := bytes.Clone(valid)
	binary.BigEndian.PutUint32(badEntry[8+3+4:], 5000)

	// Drop the trailing NUL of the only name.
	unterminated := bytes.Clone(valid)
	binary.BigEndian.PutUint32(unterminated[8+3:], uint32(entryFixedSize+1))
	unterminated = unterminated[:len(unterminated)-1]

	cases := map[string][]byte{
		"empty":          nil,
		"short":          []byte("MAR1"),
		"bad magic":      badMagic,
		"index offset":   badIndexOffset,
		"index size":     badIndexSize,
		"entry bounds":   badEntry,
		"unterminated":   unterminated,
		"truncated file": valid[:len(valid)-4],
	}

	for name, data := range cases {
		_, err := NewReader(bytes.NewReader(data), int64(len(data)))
		require.ErrorIs(t, err, ErrInvalidArchive, name)
	}
}

// TestCreate_RejectsInvalidNames ensures names that cannot be stored are refused.
func TestCreate_RejectsInvalidNames(t *testing.T) {
	t.Parallel()

	require.Error(t, Create(io.Discard, []Member{{Name: ""}}))
	require.Error(t, Create(io.Discard, []Member{{Name: "a\x00b"}}))
}

// TestOpenEntry_ReportsReadErrors ensures an unreadable member fails at open instead of streaming garbage.
func TestOpenEntry_ReportsReadErrors(t *testing.T) {
	t.Parallel()

	data := build(t,
		Member{Name: "updatev3.manifest", Data: []byte("type \"partial\"\n")},
		Member{Name: "empty", Data: nil},
	)

	a, err := NewReader(brokenContentReader{
		Reader:     bytes.NewReader(data),
		contentEnd: int64(binary.BigEndian.Uint32(data[len(Magic):headerSize])),
	}, int64(len(data)))
	require.NoError(t, err)

	_, err = a.Open("updatev3.manifest")
	require.ErrorIs(t, err, errTestDisk)

	// A zero-length member only reports io.EOF while sniffing and opens fine.
	require.Empty(t, readMember(t, a, "empty"))
}
