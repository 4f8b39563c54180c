package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health reports liveness and whether the result store answers.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.Expansions.Ready(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("health: result store unavailable")
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "result_store": "unavailable"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "result_store": "ok"})
}
