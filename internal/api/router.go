// Package api exposes a store over HTTP and provides a client that
// implements the same store interface against a remote server.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

// CallerHeader carries the calling user's id. It is trusted as is.
const CallerHeader = "X-User-Id"

// Server serves one store.
type Server struct {
	store storage.Storage
	hub   *Hub
	log   *types.Logger
}

// NewServer wires a store to an event hub. A nil hub disables events.
func NewServer(store storage.Storage, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub()
	}
	return &Server{store: store, hub: hub, log: types.GlobalLogger.WithField("component", "api")}
}

// Router returns the HTTP handler with every route applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(callerFromHeader)
	return s.applyRoutes(r)
}

func (s *Server) applyRoutes(r chi.Router) chi.Router {
	r.Route("/workspaces", func(r chi.Router) {
		r.Get("/", s.listWorkspaces)
		r.Post("/", s.createWorkspace)
		r.Post("/{workspaceID}/tables", s.createDefaultTable)
	})
	r.Route("/tables/{tableID}", func(r chi.Router) {
		r.Get("/", s.getTable)
		r.Get("/rows", s.getRows)
		r.Post("/rows", s.addRow)
		r.Post("/query", s.queryRows)
		r.Post("/columns", s.addColumn)
		r.Post("/fake", s.addFakeRows)
		r.Put("/cells", s.updateCell)
		r.Get("/events", s.events)
	})
	return r
}

func callerFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(CallerHeader); id != "" {
			r = r.WithContext(types.WithCaller(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// Hub returns the event hub mutations are published to.
func (s *Server) Hub() *Hub { return s.hub }
