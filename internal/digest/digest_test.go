package digest

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

var errBrokenDisk = errors.New("broken disk")

// flakyReader returns EINTR once before every successful read and can fail at the end.
type flakyReader struct {
	// r provides the actual data.
	r io.Reader
	// interrupted tracks whether the next read should be interrupted.
	interrupted bool
	// failWith, if set, replaces io.EOF.
	failWith error
}

// Read alternates between an interrupted read and a real one.
func (f *flakyReader) Read(p []byte) (int, error) {
	if !f.interrupted {
		f.interrupted = true
		return 0, syscall.EINTR
	}

	f.interrupted = false

	n, err := f.r.Read(p)
	if errors.Is(err, io.EOF) && f.failWith != nil {
		return n, f.failWith
	}

	return n, err
}

// sha512Hex is the reference digest of data.
func sha512Hex(data []byte) string {
	sum := sha512.Sum512(data)
	return hex.EncodeToString(sum[:])
}

// TestFile_MatchesReference verifies digest and size of files around the chunk boundary.
func TestFile_MatchesReference(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, size := range []int{0, 1, 12345, ChunkSize, ChunkSize + 7} {
		data := bytes.Repeat([]byte{0xA5, 0x5A, 0x01}, size/3+1)[:size]
		path := filepath.Join(dir, "archive.mar")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		sum, err := File(context.Background(), path, crypto.SHA512)
		require.NoError(t, err)
		require.Equal(t, sha512Hex(data), sum.Hex)
		require.Equal(t, uint64(size), sum.Size)
		require.Len(t, sum.Hex, 128)
	}
}

// TestFile_RejectsNonRegular ensures directories and missing paths fail.
func TestFile_RejectsNonRegular(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := File(context.Background(), dir, crypto.SHA512)
	require.ErrorIs(t, err, ErrNotRegularFile)

	_, err = File(context.Background(), filepath.Join(dir, "missing"), crypto.SHA512)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestReader_RetriesInterruptedReads checks that EINTR is retried and invisible to callers.
func TestReader_RetriesInterruptedReads(t *testing.T) {
	t.Parallel()

	data := []byte("mozilla archive payload")

	sum, err := Reader(context.Background(), &flakyReader{r: bytes.NewReader(data)}, crypto.SHA512)
	require.NoError(t, err)
	require.Equal(t, sha512Hex(data), sum.Hex)
	require.Equal(t, uint64(len(data)), sum.Size)
}

// TestReader_PropagatesOtherErrors ensures non-retryable read failures are returned.
func TestReader_PropagatesOtherErrors(t *testing.T) {
	t.Parallel()

	r := &flakyReader{r: bytes.NewReader([]byte("abc")), failWith: errBrokenDisk}

	_, err := Reader(context.Background(), r, crypto.SHA512)
	require.ErrorIs(t, err, errBrokenDisk)
}

// TestReader_StopsOnCancel verifies a canceled context aborts hashing.
func TestReader_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Reader(ctx, bytes.NewReader([]byte("abc")), crypto.SHA512)
	require.ErrorIs(t, err, context.Canceled)
}
