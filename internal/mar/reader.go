package mar

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

// Magic is the identifier at the beginning of every MAR file.
const Magic = "MAR1"

const (
	// headerSize is the magic plus the index offset.
	headerSize = 8
	// entryFixedSize is offset, size and flags of an index entry.
	entryFixedSize = 12
)

var (
	// ErrInvalidArchive is returned when the data does not follow the MAR layout.
	ErrInvalidArchive = errors.New("invalid MAR archive")
	// ErrMemberNotFound is returned when the archive has no member with the requested name.
	ErrMemberNotFound = errors.New("member not found")
)

var (
	xzMagic    = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	bzip2Magic = []byte("BZh")
)

// Entry describes one member of the archive.
type Entry struct {
	// Name is the member path inside the archive.
	Name string
	// Offset is the position of the content from the start of the file.
	Offset uint32
	// Size is the stored (possibly compressed) content length.
	Size uint32
	// Flags holds the file permission bits.
	Flags uint32
}

// Archive is an opened MAR file with its index loaded.
type Archive struct {
	r      io.ReaderAt
	closer io.Closer

	entries []Entry
	byName  map[string]int
}

// Open opens the MAR file at path and reads its index.
func Open(path string) (*Archive, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	a, err := NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	a.closer = f

	return a, nil
}

// NewReader reads the index of a MAR archive of the given size from r.
func NewReader(r io.ReaderAt, size int64) (*Archive, error) {
	if size < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is too small", ErrInvalidArchive, size)
	}

	header := make([]byte, headerSize)
	if err := readAt(r, header, 0); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if string(header[:len(Magic)]) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidArchive, header[:len(Magic)])
	}

	indexOffset := int64(binary.BigEndian.Uint32(header[len(Magic):]))
	if indexOffset < headerSize || indexOffset+4 > size {
		return nil, fmt.Errorf("%w: index offset %d outside of %d bytes", ErrInvalidArchive, indexOffset, size)
	}

	sizeBuf := make([]byte, 4)
	if err := readAt(r, sizeBuf, indexOffset); err != nil {
		return nil, fmt.Errorf("read index size: %w", err)
	}

	indexSize := int64(binary.BigEndian.Uint32(sizeBuf))
	if indexOffset+4+indexSize > size {
		return nil, fmt.Errorf("%w: index of %d bytes overruns the file", ErrInvalidArchive, indexSize)
	}

	index := make([]byte, indexSize)
	if err := readAt(r, index, indexOffset+4); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	entries, err := parseIndex(index)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		r:       r,
		entries: entries,
		byName:  make(map[string]int, len(entries)),
	}

	for i, e := range entries {
		if int64(e.Offset) < headerSize || int64(e.Offset)+int64(e.Size) > size {
			return nil, fmt.Errorf("%w: member %q lies outside of the file", ErrInvalidArchive, e.Name)
		}

		if _, seen := a.byName[e.Name]; !seen {
			a.byName[e.Name] = i
		}
	}

	return a, nil
}

// parseIndex decodes the index entries.
func parseIndex(buf []byte) ([]Entry, error) {
	var entries []Entry

	for len(buf) > 0 {
		if len(buf) < entryFixedSize {
			return nil, fmt.Errorf("%w: truncated index entry", ErrInvalidArchive)
		}

		e := Entry{
			Offset: binary.BigEndian.Uint32(buf[0:4]),
			Size:   binary.BigEndian.Uint32(buf[4:8]),
			Flags:  binary.BigEndian.Uint32(buf[8:12]),
		}
		buf = buf[entryFixedSize:]

		n := bytes.IndexByte(buf, 0)
		if n < 0 {
			return nil, fmt.Errorf("%w: unterminated member name", ErrInvalidArchive)
		}

		if n == 0 {
			return nil, fmt.Errorf("%w: empty member name", ErrInvalidArchive)
		}

		e.Name = string(buf[:n])
		buf = buf[n+1:]

		entries = append(entries, e)
	}

	return entries, nil
}

// Members yields the index entries in stored order.
func (a *Archive) Members() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range a.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of members.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Lookup returns the entry stored under name. For duplicate names the first wins.
func (a *Archive) Lookup(name string) (Entry, bool) {
	i, ok := a.byName[name]
	if !ok {
		return Entry{}, false
	}

	return a.entries[i], true
}

// Open returns a stream of the decompressed content of the named member.
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	e, ok := a.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrMemberNotFound)
	}

	return a.OpenEntry(e)
}

// OpenEntry returns a stream of the decompressed content of e.
func (a *Archive) OpenEntry(e Entry) (io.ReadCloser, error) {
	rc, err := newContentReader(io.NewSectionReader(a.r, int64(e.Offset), int64(e.Size)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}

	return rc, nil
}

// Close releases the underlying file when the archive was opened from a path.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}

	err := a.closer.Close()
	a.closer = nil

	return err
}

// newContentReader sniffs the compression of a member and wraps r accordingly.
func newContentReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)

	// A short member yields fewer bytes and io.EOF, which is fine here.
	head, err := br.Peek(len(xzMagic))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read member header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, xzMagic):
		zr, err := xz.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open xz stream: %w", err)
		}

		return io.NopCloser(zr), nil
	case len(head) > len(bzip2Magic) && bytes.HasPrefix(head, bzip2Magic) &&
		head[len(bzip2Magic)] >= '1' && head[len(bzip2Magic)] <= '9':
		return io.NopCloser(bzip2.NewReader(br)), nil
	default:
		return io.NopCloser(br), nil
	}
}

// readAt fills buf from offset off, accepting io.EOF once buf is full.
func readAt(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected end of file", ErrInvalidArchive)
	}

	return err
}
