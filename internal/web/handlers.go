package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/featureprep/internal/core"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.respondError(w, r, err, http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	report, err := s.reports.ReadReport(r.Context(), runID)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetLineage(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")

	entry, err := s.store.GetLineage(r.Context(), version)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// splitsResponse is the per-partition row count of one feature version.
type splitsResponse struct {
	FeatureVersion string `json:"featureVersion"`
	core.SplitCounts
	Total int `json:"total"`
}

func (s *Server) handleGetSplits(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")

	counts, err := s.store.CountSplits(r.Context(), version)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, splitsResponse{
		FeatureVersion: version,
		SplitCounts:    counts,
		Total:          counts.Total(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRunsLimit {
			s.respondError(w, r, errInvalidLimit, http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if runs == nil {
		runs = []core.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

var errInvalidLimit = errors.New("invalid limit: must be between 1 and 500")

func statusFor(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
