package digest

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	// Ensure SHA512 is available to crypto.Hash callers.
	_ "crypto/sha512"
)

// ChunkSize is the amount of bytes read from the file per hashing step.
const ChunkSize = 5 * 1024 * 1024

var (
	// ErrNotRegularFile is returned when the path is a directory, device or similar.
	ErrNotRegularFile = errors.New("not a regular file")
	// errHashUnavailable is returned when the hash implementation is not linked in.
	errHashUnavailable = errors.New("hash function unavailable")
)

// Sum is the result of hashing a file.
type Sum struct {
	// Hex is the lowercase hex encoding of the digest.
	Hex string
	// Size is the number of bytes fed into the hash.
	Size uint64
}

// File hashes the whole content of the regular file at path with h.
func File(ctx context.Context, path string, h crypto.Hash) (Sum, error) {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return Sum{}, err
	}

	if !info.Mode().IsRegular() {
		return Sum{}, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	f, err := os.Open(path)
	if err != nil {
		return Sum{}, err
	}

	defer func() {
		_ = f.Close()
	}()

	return Reader(ctx, f, h)
}

// Reader hashes everything r yields until io.EOF. Reads interrupted by a
// signal (EINTR) are retried, every other read error is returned.
func Reader(ctx context.Context, r io.Reader, h crypto.Hash) (Sum, error) {
	if !h.Available() {
		return Sum{}, fmt.Errorf("%s: %w", h, errHashUnavailable)
	}

	var (
		hasher = h.New()
		buf    = make([]byte, ChunkSize)
		size   uint64
	)

	for {
		if err := ctx.Err(); err != nil {
			return Sum{}, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			// hash.Hash never returns an error from Write.
			_, _ = hasher.Write(buf[:n])
			size += uint64(n)
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			return Sum{
				Hex:  hex.EncodeToString(hasher.Sum(nil)),
				Size: size,
			}, nil
		case errors.Is(err, syscall.EINTR):
			continue
		default:
			return Sum{}, fmt.Errorf("read after %d bytes: %w", size, err)
		}
	}
}
