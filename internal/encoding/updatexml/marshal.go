package updatexml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"

	"github.com/oshokin/mar-update-server/internal/domain/update"
)

const indent = "  "

// ErrInvalidDescriptor is returned when a catalog cannot be rendered as a valid document.
var ErrInvalidDescriptor = errors.New("invalid update descriptor")

// Marshal renders the catalog. The same catalog always yields the same bytes.
func Marshal(catalog *update.Catalog) ([]byte, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrInvalidDescriptor)
	}

	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}

	e := &encoder{}

	if len(catalog.Updates) == 0 {
		e.buf.WriteString("<updates></updates>")

		return e.bytes()
	}

	e.buf.WriteString("<updates>\n")

	for i := range catalog.Updates {
		e.writeUpdate(&catalog.Updates[i])
	}

	e.buf.WriteString("</updates>")

	return e.bytes()
}

// encoder accumulates the document and the first escaping error.
type encoder struct {
	buf bytes.Buffer
	err error
}

func (e *encoder) bytes() ([]byte, error) {
	if e.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, e.err)
	}

	return e.buf.Bytes(), nil
}

func (e *encoder) writeUpdate(u *update.Update) {
	e.buf.WriteString(indent)
	e.buf.WriteString("<update")
	e.attr("type", u.Kind.String())
	e.attr("displayVersion", u.DisplayVersion)
	e.attr("appVersion", u.AppVersion)
	e.attr("platformVersion", u.PlatformVersion)
	e.attr("buildID", u.BuildID)

	if len(u.Patches) == 0 {
		e.buf.WriteString("/>\n")

		return
	}

	e.buf.WriteString(">\n")

	for i := range u.Patches {
		e.writePatch(&u.Patches[i])
	}

	e.buf.WriteString(indent)
	e.buf.WriteString("</update>\n")
}

func (e *encoder) writePatch(p *update.Patch) {
	e.buf.WriteString(indent + indent)
	e.buf.WriteString("<patch")
	e.attr("type", p.Kind.String())
	e.attr("URL", p.URL)
	e.attr("hashFunction", p.HashFunction.String())
	e.attr("hashValue", p.HashValue)
	e.attr("size", strconv.FormatUint(p.Size, 10))
	e.buf.WriteString("/>\n")
}

func (e *encoder) attr(name, value string) {
	e.buf.WriteByte(' ')
	e.buf.WriteString(name)
	e.buf.WriteString(`="`)

	if err := xml.EscapeText(&e.buf, []byte(value)); err != nil && e.err == nil {
		e.err = fmt.Errorf("attribute %s: %w", name, err)
	}

	e.buf.WriteByte('"')
}
