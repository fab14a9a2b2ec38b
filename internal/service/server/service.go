package server

import (
	"context"
	"fmt"

	domain "github.com/oshokin/mar-update-server/internal/domain/update"
	"github.com/oshokin/mar-update-server/internal/encoding/updatexml"
	"github.com/oshokin/mar-update-server/internal/repository/archive"
)

// service holds what the HTTP routes serve.
// Nothing in it changes after newService returns, so handlers read it without locks.
type service struct {
	// document is the serialized update.xml.
	document []byte
	// repo opens the archive for every download.
	repo archive.Repository
}

// newService serializes the catalog once and pairs it with the archive repository.
func newService(catalog *domain.Catalog, repo archive.Repository) (*service, error) {
	document, err := updatexml.Marshal(catalog)
	if err != nil {
		return nil, fmt.Errorf("serialize update document: %w", err)
	}

	return &service{
		document: document,
		repo:     repo,
	}, nil
}

// Document returns the serialized update.xml.
func (s *service) Document(context.Context) []byte {
	return s.document
}

// OpenArchive opens a new handle to the served archive.
func (s *service) OpenArchive(ctx context.Context) (*archive.Handle, error) {
	return s.repo.Open(ctx)
}
