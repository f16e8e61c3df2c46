// Package api implements the HTTP surface exposed to the host platform:
// live channel state, optimistic writes, and the preset service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/bias-go/internal/models"
	"github.com/micro-nova/bias-go/internal/scenes"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	scenes Scenes
	events EventBus
}

// Controller is the coordinator access the handlers use.
type Controller interface {
	State() (models.State, bool)
	SetChannel(ctx context.Context, ch int, upd models.ChannelUpdate) error
	SetStandby(ctx context.Context, standby bool) error
}

// Scenes is the preset service surface.
type Scenes interface {
	List() ([]models.Preset, error)
	Get(id int) (models.Preset, error)
	Capture(name string) (models.Preset, error)
	Update(id int) (models.Preset, error)
	Apply(ctx context.Context, id int) (scenes.ApplyReport, error)
	Rename(id int, name string) (models.Preset, error)
	Delete(id int) error
}

// EventBus is the interface for subscribing to state change events.
// The returned cancel function releases the subscription.
type EventBus interface {
	Subscribe() (<-chan models.State, func())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps core error types onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, scenes.ErrNotFound):
		appErr = models.ErrNotFound(err.Error())
	default:
		var (
			valErr   *models.ValidationError
			trErr    *models.TransportError
			protoErr *models.ProtocolError
			rejErr   *models.RemoteRejection
		)
		switch {
		case errors.As(err, &valErr):
			appErr = models.ErrBadRequest(err.Error())
		case errors.As(err, &trErr), errors.As(err, &protoErr), errors.As(err, &rejErr):
			appErr = models.ErrUnavailable(err.Error())
		default:
			appErr = models.ErrInternal(err.Error())
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(appErr)
}

// intParam reads an integer path parameter by name.
func intParam(r *http.Request, name string) (int, error) {
	s := chi.URLParam(r, name)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, models.ErrBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}
