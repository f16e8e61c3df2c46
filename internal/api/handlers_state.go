package api

import (
	"encoding/json"
	"net/http"

	"github.com/micro-nova/bias-go/internal/models"
)

// stateResponse is the full system view returned by GET /api.
type stateResponse struct {
	models.State
	Populated bool            `json:"populated"`
	Presets   []models.Preset `json:"presets"`
}

func (h *Handlers) getState(w http.ResponseWriter, r *http.Request) {
	state, populated := h.ctrl.State()
	presets, err := h.scenes.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: state, Populated: populated, Presets: presets})
}

func (h *Handlers) getChannels(w http.ResponseWriter, r *http.Request) {
	state, _ := h.ctrl.State()
	writeJSON(w, http.StatusOK, map[string]interface{}{"channels": state.Channels})
}

func (h *Handlers) getChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := intParam(r, "ch")
	if err != nil {
		writeError(w, err)
		return
	}
	state, _ := h.ctrl.State()
	if ch < 0 || ch >= len(state.Channels) {
		writeError(w, models.ErrNotFound("channel not found"))
		return
	}
	writeJSON(w, http.StatusOK, state.Channels[ch])
}

func (h *Handlers) setChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := intParam(r, "ch")
	if err != nil {
		writeError(w, err)
		return
	}
	var upd models.ChannelUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if err := h.ctrl.SetChannel(r.Context(), ch, upd); err != nil {
		writeError(w, err)
		return
	}
	state, _ := h.ctrl.State()
	writeJSON(w, http.StatusOK, state.Channels[ch])
}

func (h *Handlers) setStandby(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Standby *bool `json:"standby"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if req.Standby == nil {
		writeError(w, models.ErrBadRequest("standby field is required"))
		return
	}
	if err := h.ctrl.SetStandby(r.Context(), *req.Standby); err != nil {
		writeError(w, err)
		return
	}
	state, _ := h.ctrl.State()
	writeJSON(w, http.StatusOK, map[string]interface{}{"standby": state.Standby})
}
