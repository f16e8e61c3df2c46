// Package scenes persists named snapshots (presets) of the amplifier's
// output state and captures/applies them through the live coordinator.
package scenes

import (
	"errors"

	"github.com/micro-nova/bias-go/internal/models"
)

// ErrNotFound is returned when no preset has the requested id.
var ErrNotFound = errors.New("preset not found")

// Store is the interface for preset persistence. Ids are assigned
// monotonically and never reused, even after delete, so historical
// references (automations, schedules) can never silently bind to a
// different preset. Implementations serialize mutating operations.
type Store interface {
	// Create validates the preset, assigns it the next id and both
	// timestamps, and persists it. Returns the stored preset.
	Create(p models.Preset) (models.Preset, error)

	// Get returns the preset with the given id, or ErrNotFound.
	Get(id int) (models.Preset, error)

	// List returns all presets in creation order.
	List() ([]models.Preset, error)

	// Update replaces a preset's captured state, preserving its id and
	// created_at and bumping updated_at. An empty incoming name keeps
	// the stored name.
	Update(id int, p models.Preset) (models.Preset, error)

	// Delete removes a preset. Remaining ids are never renumbered.
	Delete(id int) error

	// Rename changes a preset's name and bumps updated_at.
	Rename(id int, name string) (models.Preset, error)

	// Close releases any resources held by the store.
	Close()
}
