// Package server exposes the version store and simulation collaborator
// over HTTP for browser clients. It is a thin boundary layer: graph
// semantics live in the schematic and editor packages, the server only
// moves serialized snapshots.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nuno18084/Ampflux-sub000/pkg/access"
	"github.com/nuno18084/Ampflux-sub000/pkg/schematic"
	"github.com/nuno18084/Ampflux-sub000/pkg/sim"
	"github.com/nuno18084/Ampflux-sub000/pkg/store"
)

// RoleHeader carries the caller's project role, as resolved by the
// fronting auth layer. The server derives permission flags from it and
// refuses writes without edit rights.
const RoleHeader = "X-Ampflux-Role"

// maxSnapshotBytes bounds uploaded snapshot size.
const maxSnapshotBytes = 4 << 20

// Server is the HTTP API over a version store and an optional simulator.
type Server struct {
	versions store.VersionStore
	sim      sim.Runner
	logger   *log.Logger
}

// New creates a server. sim may be nil, in which case the simulate
// endpoint reports the collaborator as unavailable.
func New(versions store.VersionStore, runner sim.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{versions: versions, sim: runner, logger: logger}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api/projects/{projectID}", func(r chi.Router) {
		r.Get("/versions", s.handleListVersions)
		r.Post("/versions", s.handleSaveVersion)
		r.Get("/graph", s.handleLatestGraph)
		r.Post("/simulate", s.handleSimulate)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := s.versions.LatestVersions(r.Context(), projectID, limit)
	if err != nil {
		s.logger.Error("list versions failed", "project", projectID, "err", err)
		writeError(w, http.StatusInternalServerError, "version store unavailable")
		return
	}
	if records == nil {
		records = []store.VersionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleLatestGraph returns the newest saved snapshot. A project with no
// versions yields an empty snapshot rather than an error, so the editor
// can always open.
func (s *Server) handleLatestGraph(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	rec, err := s.versions.Latest(r.Context(), projectID)
	if errors.Is(err, store.ErrProjectNotFound) {
		snap := schematic.Snapshot{View: schematic.DefaultView()}
		data, _ := schematic.MarshalSnapshot(snap)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}
	if err != nil {
		s.logger.Error("latest graph failed", "project", projectID, "err", err)
		writeError(w, http.StatusInternalServerError, "version store unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, rec.Graph)
}

func (s *Server) handleSaveVersion(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	perms := access.ForRole(access.Role(r.Header.Get(RoleHeader)))
	if !perms.CanEdit {
		writeError(w, http.StatusForbidden, "edit permission required")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	// Reject snapshots the editor could not load back.
	if _, err := schematic.UnmarshalSnapshot(body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed snapshot")
		return
	}

	rec, err := s.versions.SaveVersion(r.Context(), projectID, string(body))
	if err != nil {
		s.logger.Error("save version failed", "project", projectID, "err", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	if s.sim == nil {
		writeError(w, http.StatusServiceUnavailable, "simulation not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	result, err := s.sim.Run(r.Context(), projectID, string(body))
	if err != nil {
		s.logger.Error("simulation failed", "project", projectID, "err", err)
		writeError(w, http.StatusBadGateway, "simulation failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
