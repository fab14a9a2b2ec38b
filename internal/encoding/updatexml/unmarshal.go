package updatexml

import (
	"encoding/xml"
	"fmt"

	"github.com/oshokin/mar-update-server/internal/domain/update"
)

type updatesElement struct {
	XMLName xml.Name        `xml:"updates"`
	Updates []updateElement `xml:"update"`
}

type updateElement struct {
	Type            string         `xml:"type,attr"`
	DisplayVersion  string         `xml:"displayVersion,attr"`
	AppVersion      string         `xml:"appVersion,attr"`
	PlatformVersion string         `xml:"platformVersion,attr"`
	BuildID         string         `xml:"buildID,attr"`
	Patches         []patchElement `xml:"patch"`
}

type patchElement struct {
	Type         string `xml:"type,attr"`
	URL          string `xml:"URL,attr"`
	HashFunction string `xml:"hashFunction,attr"`
	HashValue    string `xml:"hashValue,attr"`
	Size         uint64 `xml:"size,attr"`
}

// Unmarshal parses an update.xml document back into a catalog.
// Unknown enumeration values and malformed hashes are reported as ErrInvalidDescriptor.
func Unmarshal(data []byte) (*update.Catalog, error) {
	var doc updatesElement
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode update document: %w", err)
	}

	catalog := &update.Catalog{Updates: make([]update.Update, 0, len(doc.Updates))}

	for i, el := range doc.Updates {
		u, err := el.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: update #%d: %w", ErrInvalidDescriptor, i, err)
		}

		catalog.Updates = append(catalog.Updates, u)
	}

	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}

	return catalog, nil
}

func (el *updateElement) toDomain() (update.Update, error) {
	kind, err := update.ParseUpdateKind(el.Type)
	if err != nil {
		return update.Update{}, err
	}

	u := update.Update{
		Kind:            kind,
		DisplayVersion:  el.DisplayVersion,
		AppVersion:      el.AppVersion,
		PlatformVersion: el.PlatformVersion,
		BuildID:         el.BuildID,
	}

	for i := range el.Patches {
		p, err := el.Patches[i].toDomain()
		if err != nil {
			return update.Update{}, fmt.Errorf("patch #%d: %w", i, err)
		}

		u.Patches = append(u.Patches, p)
	}

	return u, nil
}

func (el *patchElement) toDomain() (update.Patch, error) {
	kind, err := update.ParsePatchKind(el.Type)
	if err != nil {
		return update.Patch{}, err
	}

	hashFunction, err := update.ParseHashFunction(el.HashFunction)
	if err != nil {
		return update.Patch{}, err
	}

	return update.Patch{
		Kind:         kind,
		URL:          el.URL,
		HashFunction: hashFunction,
		HashValue:    el.HashValue,
		Size:         el.Size,
	}, nil
}
