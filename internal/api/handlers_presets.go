package api

import (
	"encoding/json"
	"net/http"

	"github.com/micro-nova/bias-go/internal/models"
)

func (h *Handlers) getPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.scenes.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"presets": presets})
}

func (h *Handlers) getPreset(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.scenes.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// createPreset captures the current device state under the given name.
func (h *Handlers) createPreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	p, err := h.scenes.Capture(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) renamePreset(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	p, err := h.scenes.Rename(id, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) deletePreset(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.scenes.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// loadPreset applies a stored preset to the device and returns the
// per-value outcome report.
func (h *Handlers) loadPreset(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.scenes.Apply(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// updatePreset re-captures current device state into an existing preset.
func (h *Handlers) updatePreset(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.scenes.Update(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
