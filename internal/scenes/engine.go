package scenes

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/micro-nova/bias-go/internal/bias"
	"github.com/micro-nova/bias-go/internal/models"
)

// Controller is the coordinator access the engine needs.
type Controller interface {
	State() (models.State, bool)
	ApplyWrites(ctx context.Context, writes []bias.Write) ([]bias.Result, error)
}

// Engine captures and applies presets through the live coordinator.
// It never reads the device directly: capture uses the coordinator's
// cached snapshot, and apply goes out as one batched write.
type Engine struct {
	store Store
	ctrl  Controller
}

// NewEngine creates a scene engine backed by the given store.
func NewEngine(store Store, ctrl Controller) *Engine {
	return &Engine{store: store, ctrl: ctrl}
}

// Outcome is the per-value result of applying one preset element.
type Outcome struct {
	Path    string `json:"path"`
	OK      bool   `json:"ok"`
	Warning bool   `json:"warning,omitempty"` // rejected but non-critical
	Detail  string `json:"detail,omitempty"`
}

// ApplyReport summarizes one preset application.
type ApplyReport struct {
	PresetID int       `json:"preset_id"`
	Applied  int       `json:"applied"`
	Rejected int       `json:"rejected"`
	Outcomes []Outcome `json:"outcomes"`
}

// Capture snapshots the coordinator's cached output state into a new
// preset. If the device has never been polled successfully there is
// nothing trustworthy to capture.
func (e *Engine) Capture(name string) (models.Preset, error) {
	state, populated := e.ctrl.State()
	if !populated {
		return models.Preset{}, &models.ValidationError{Msg: "device has not been polled yet; cannot capture preset"}
	}
	return e.store.Create(presetFromState(name, state))
}

// Update re-captures the current state into an existing preset,
// preserving its id, name, and created_at.
func (e *Engine) Update(id int) (models.Preset, error) {
	state, populated := e.ctrl.State()
	if !populated {
		return models.Preset{}, &models.ValidationError{Msg: "device has not been polled yet; cannot update preset"}
	}
	return e.store.Update(id, presetFromState("", state))
}

// Apply loads a preset and writes every channel's gain and mute, plus
// standby if captured, as one batched write. Per-value rejections are
// reported individually; a standby rejection is downgraded to a warning
// since the path is not writeable on all models. On success the
// coordinator's snapshot already reflects the applied values through
// the optimistic-write path.
func (e *Engine) Apply(ctx context.Context, id int) (ApplyReport, error) {
	p, err := e.store.Get(id)
	if err != nil {
		return ApplyReport{}, err
	}

	writes := writesForPreset(p)
	results, err := e.ctrl.ApplyWrites(ctx, writes)
	if err != nil {
		return ApplyReport{}, err
	}

	report := ApplyReport{PresetID: id, Outcomes: make([]Outcome, len(results))}
	for i, r := range results {
		o := Outcome{Path: r.Path, OK: r.Err == nil}
		if r.Err == nil {
			report.Applied++
		} else {
			o.Detail = r.Err.Error()
			if r.Path == bias.PathStandby {
				o.Warning = true
				slog.Warn("scenes: standby write rejected, continuing", "preset", id, "err", r.Err)
			}
			report.Rejected++
		}
		report.Outcomes[i] = o
	}
	slog.Info("scenes: applied preset", "id", id, "name", p.Name,
		"applied", report.Applied, "rejected", report.Rejected)
	return report, nil
}

// List, Get, Rename, and Delete delegate to the store so the API layer
// has a single scene dependency.
func (e *Engine) List() ([]models.Preset, error) { return e.store.List() }
func (e *Engine) Get(id int) (models.Preset, error) { return e.store.Get(id) }
func (e *Engine) Delete(id int) error { return e.store.Delete(id) }
func (e *Engine) Rename(id int, name string) (models.Preset, error) {
	return e.store.Rename(id, name)
}

func presetFromState(name string, state models.State) models.Preset {
	channels := make(map[string]models.PresetChannel, len(state.Channels))
	for _, ch := range state.Channels {
		channels[strconv.Itoa(ch.ID)] = models.PresetChannel{
			Gain: ch.Gain,
			Mute: ch.Mute,
			Name: ch.Name,
		}
	}
	standby := state.Standby
	return models.Preset{
		Name:           name,
		OutputChannels: channels,
		Standby:        &standby,
	}
}

// writesForPreset builds the batch in channel order for deterministic
// wire requests.
func writesForPreset(p models.Preset) []bias.Write {
	keys := make([]int, 0, len(p.OutputChannels))
	for key := range p.OutputChannels {
		if idx, err := strconv.Atoi(key); err == nil {
			keys = append(keys, idx)
		}
	}
	sort.Ints(keys)

	writes := make([]bias.Write, 0, len(keys)*2+1)
	for _, ch := range keys {
		cfg := p.OutputChannels[strconv.Itoa(ch)]
		writes = append(writes,
			bias.Write{Path: bias.ChannelGain.Path(ch), Value: models.FloatValue(cfg.Gain)},
			bias.Write{Path: bias.ChannelMute.Path(ch), Value: models.BoolValue(cfg.Mute)},
		)
	}
	if p.Standby != nil {
		writes = append(writes, bias.Write{Path: bias.PathStandby, Value: models.BoolValue(*p.Standby)})
	}
	return writes
}
