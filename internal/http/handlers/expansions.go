package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"sqlexpansion/internal/domain"
	"sqlexpansion/internal/expansion"
	"sqlexpansion/internal/middleware"
)

type sqlExpansionRequest struct {
	Query          string                `json:"query"`
	History        domain.History        `json:"history"`
	ProjectID      string                `json:"project_id"`
	MDLHash        string                `json:"mdl_hash"`
	ThreadID       string                `json:"thread_id"`
	Configurations *domain.Configuration `json:"configurations"`
}

type stopSQLExpansionRequest struct {
	Status domain.Status `json:"status"`
}

type queryIDResponse struct {
	QueryID string `json:"query_id"`
}

// StartSQLExpansion handles POST /v1/sql-expansions.
func (a *App) StartSQLExpansion(w http.ResponseWriter, r *http.Request) {
	var req sqlExpansionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "query is required")
		return
	}
	var cfg domain.Configuration
	if req.Configurations != nil {
		cfg = *req.Configurations
	}
	cfg.Language = a.outputLanguage(r, cfg.Language)

	id, err := a.Expansions.Start(r.Context(), domain.Request{
		Query:         req.Query,
		History:       req.History,
		ProjectID:     req.ProjectID,
		MDLHash:       req.MDLHash,
		ThreadID:      req.ThreadID,
		Configuration: cfg,
	})
	if err != nil {
		if errors.Is(err, expansion.ErrServiceClosed) {
			a.error(w, http.StatusServiceUnavailable, "unavailable", "service is shutting down")
			return
		}
		a.Logger.Error().Err(err).Msg("sql expansion: start failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start sql expansion")
		return
	}
	a.json(w, http.StatusOK, queryIDResponse{QueryID: id})
}

// StopSQLExpansion handles PATCH /v1/sql-expansions/{query_id}.
func (a *App) StopSQLExpansion(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "query_id")
	var req stopSQLExpansionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Status != domain.StatusStopped {
		a.error(w, http.StatusBadRequest, "bad_request", `status must be "stopped"`)
		return
	}
	if err := a.Expansions.Stop(r.Context(), queryID); err != nil {
		a.Logger.Error().Err(err).Str("query_id", queryID).Msg("sql expansion: stop failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to stop sql expansion")
		return
	}
	a.json(w, http.StatusOK, queryIDResponse{QueryID: queryID})
}

// SQLExpansionResult handles GET /v1/sql-expansions/{query_id}/result.
func (a *App) SQLExpansionResult(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "query_id")
	a.json(w, http.StatusOK, a.Expansions.Result(r.Context(), queryID))
}

// SQLExpansionEvents handles GET /v1/sql-expansions/{query_id}/events.
func (a *App) SQLExpansionEvents(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "query_id")
	items, err := a.Expansions.Transitions(r.Context(), queryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "journal_disabled", "transition journal is not configured")
			return
		}
		a.Logger.Error().Err(err).Str("query_id", queryID).Msg("sql expansion: list transitions failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load transitions")
		return
	}
	if items == nil {
		items = []domain.Transition{}
	}
	a.json(w, http.StatusOK, map[string]any{"query_id": queryID, "items": items})
}

// outputLanguage picks the summary language: the request's own setting, then
// the caller's locale, then the configured default.
func (a *App) outputLanguage(r *http.Request, requested string) string {
	if strings.TrimSpace(requested) != "" {
		return domain.NormalizeLanguage(requested)
	}
	if locale, ok := middleware.LocaleFromContextOK(r.Context()); ok {
		return domain.NormalizeLanguage(locale)
	}
	return domain.NormalizeLanguage(a.DefaultLanguage)
}
