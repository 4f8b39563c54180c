package handlers

import (
	"net/http"
)

// Stats reports in-process counters of the expansion service.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"active_runs":     a.Expansions.Active(),
		"journal_enabled": a.Expansions.JournalEnabled(),
	}
	if a.StoreSize != nil {
		out["store_entries"] = a.StoreSize()
	}
	a.json(w, http.StatusOK, out)
}
