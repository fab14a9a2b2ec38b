package update

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oshokin/mar-update-server/internal/logger"
	"github.com/oshokin/mar-update-server/internal/repository/archive"
)

const (
	// DocumentRoute serves the update.xml document.
	DocumentRoute = "/update.xml"
	// ArchiveRoute serves the MAR archive.
	ArchiveRoute = "/update.mar"

	documentContentType = "text/xml; charset=utf-8"
	archiveContentType  = "application/octet-stream"
)

// Service abstracts what the routes serve.
type Service interface {
	// Document returns the serialized update.xml. Callers must not modify it.
	Document(ctx context.Context) []byte
	// OpenArchive opens a fresh handle to the archive.
	OpenArchive(ctx context.Context) (*archive.Handle, error)
}

// Observer records answered requests.
type Observer interface {
	ObserveRequest(route string, code, written int)
}

// Server is the http.Handler of the update listener.
type Server struct {
	// service provides the document and the archive.
	service Service
	// observer receives per-request measurements, may be nil.
	observer Observer
	// router dispatches the two routes.
	router chi.Router
}

// NewServer wires the provided service into a router. A nil observer disables metrics.
func NewServer(service Service, observer Observer) *Server {
	s := &Server{
		service:  service,
		observer: observer,
	}

	r := chi.NewRouter()
	r.Use(s.instrument, middleware.Recoverer, middleware.GetHead)
	r.Get(DocumentRoute, s.serveDocument)
	r.Get(ArchiveRoute, s.serveArchive)

	s.router = r

	return s
}

// ServeHTTP dispatches the request to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request) {
	document := s.service.Document(r.Context())

	w.Header().Set("Content-Type", documentContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(document)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(document); err != nil {
		logger.WarnKV(r.Context(), "Failed to write update document", "error", err)
	}
}

func (s *Server) serveArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	handle, err := s.service.OpenArchive(ctx)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			logger.WarnKV(ctx, "Archive is gone", "error", err)
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

			return
		}

		logger.ErrorKV(ctx, "Failed to open archive", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	defer func() {
		if err := handle.Close(); err != nil {
			logger.WarnKV(ctx, "Failed to close archive", "error", err)
		}
	}()

	w.Header().Set("Content-Type", archiveContentType)
	http.ServeContent(w, r, handle.Name, handle.ModTime, handle)
}
