package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(ctrl Controller, sc Scenes, bus EventBus) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.CleanPath)

	h := &Handlers{ctrl: ctrl, scenes: sc, events: bus}

	// Live state
	r.Get("/api", h.getState)
	r.Get("/api/", h.getState)
	r.Get("/api/channels", h.getChannels)
	r.Get("/api/channels/{ch}", h.getChannel)
	r.Patch("/api/channels/{ch}", h.setChannel)
	r.Patch("/api/standby", h.setStandby)

	// Presets
	r.Get("/api/presets", h.getPresets)
	r.Post("/api/presets", h.createPreset)
	r.Get("/api/presets/{pid}", h.getPreset)
	r.Patch("/api/presets/{pid}", h.renamePreset)
	r.Delete("/api/presets/{pid}", h.deletePreset)
	r.Post("/api/presets/{pid}/load", h.loadPreset)
	r.Post("/api/presets/{pid}/update", h.updatePreset)

	// Server-sent events
	r.Get("/api/events", h.sseEvents)

	return r
}
