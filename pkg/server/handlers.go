package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"mercator-hq/warden/pkg/evidence"
	"mercator-hq/warden/pkg/evidence/query"
	"mercator-hq/warden/pkg/extension"
	"mercator-hq/warden/pkg/intercept"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

type bindingsResponse struct {
	Bindings []intercept.BindingInfo `json:"bindings"`
}

type decisionsResponse struct {
	Decisions []*evidence.DecisionRecord `json:"decisions"`
	Total     int64                      `json:"total"`
	Limit     int                        `json:"limit"`
	Offset    int                        `json:"offset"`
}

type extensionsResponse struct {
	Extensions []extension.Descriptor `json:"extensions"`
}

func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	bindings := s.deps.Engine.Bindings()
	if bindings == nil {
		bindings = []intercept.BindingInfo{}
	}
	writeJSON(w, http.StatusOK, bindingsResponse{Bindings: bindings})
}

// handleDecisions serves GET /v1/decisions?owner=&operation=&state=&policy=
// &cause=&invocation_id=&since=&until=&limit=&offset=&sort_by=&sort_order=
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	q, err := query.FromValues(r.URL.Query())
	if err == nil {
		err = s.deps.Limits.Validate(q)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.deps.Limits.ApplyDefaults(q)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	records, err := s.deps.Evidence.Query(ctx, q)
	if err != nil {
		s.logger.ErrorContext(ctx, "decision query failed", "error", err)
		writeError(w, storageStatus(err), err)
		return
	}

	countQuery := *q
	countQuery.Limit, countQuery.Offset = 0, 0
	total, err := s.deps.Evidence.Count(ctx, &countQuery)
	if err != nil {
		s.logger.ErrorContext(ctx, "decision count failed", "error", err)
		writeError(w, storageStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, decisionsResponse{
		Decisions: records,
		Total:     total,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
}

func (s *Server) handleExtensions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, extensionsResponse{Extensions: s.deps.Extensions.List()})
}

func (s *Server) handleExtension(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, ok := s.deps.Extensions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("extension "+id+" not registered"))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func storageStatus(err error) int {
	if errors.Is(err, evidence.ErrClosed) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}
