package mar

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// DefaultFlags are the permission bits written for members without flags.
const DefaultFlags = 0o644

var errInvalidMember = errors.New("invalid member")

// Member is a file to be stored by Create.
type Member struct {
	// Name is the member path inside the archive.
	Name string
	// Data is stored as is; compress it beforehand if needed.
	Data []byte
	// Flags are the permission bits, DefaultFlags when zero.
	Flags uint32
}

// Create writes an unsigned MAR archive holding members in the given order.
func Create(w io.Writer, members []Member) error {
	var (
		index  bytes.Buffer
		offset = uint64(headerSize)
	)

	for _, m := range members {
		if m.Name == "" || strings.IndexByte(m.Name, 0) >= 0 {
			return fmt.Errorf("%w: name %q", errInvalidMember, m.Name)
		}

		if offset+uint64(len(m.Data)) > math.MaxUint32 {
			return fmt.Errorf("%w: %q does not fit into a MAR archive", errInvalidMember, m.Name)
		}

		flags := m.Flags
		if flags == 0 {
			flags = DefaultFlags
		}

		entry := binary.BigEndian.AppendUint32(nil, uint32(offset))
		entry = binary.BigEndian.AppendUint32(entry, uint32(len(m.Data)))
		entry = binary.BigEndian.AppendUint32(entry, flags)
		entry = append(entry, m.Name...)
		entry = append(entry, 0)

		index.Write(entry)

		offset += uint64(len(m.Data))
	}

	header := append([]byte(Magic), binary.BigEndian.AppendUint32(nil, uint32(offset))...)
	if _, err := w.Write(header); err != nil {
		return err
	}

	for _, m := range members {
		if _, err := w.Write(m.Data); err != nil {
			return err
		}
	}

	if _, err := w.Write(binary.BigEndian.AppendUint32(nil, uint32(index.Len()))); err != nil {
		return err
	}

	_, err := index.WriteTo(w)

	return err
}
