package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"sqlexpansion/internal/expansion"
)

// App carries the dependencies of the HTTP handlers.
type App struct {
	Expansions      *expansion.Service
	Logger          zerolog.Logger
	DefaultLanguage string
	// StoreSize reports live result entries when the backend can count them.
	StoreSize func() int
}

func NewApp(svc *expansion.Service, logger zerolog.Logger, defaultLanguage string) *App {
	return &App{Expansions: svc, Logger: logger, DefaultLanguage: defaultLanguage}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
