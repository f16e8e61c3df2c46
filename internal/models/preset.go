package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PresetChannel is one output channel's captured settings.
type PresetChannel struct {
	Gain float64 `json:"gain"`
	Mute bool    `json:"mute"`
	Name string  `json:"name,omitempty"`
}

// Preset is a named, persisted snapshot of the amplifier's output state.
// Channel keys are canonical decimal strings ("0".."3") for
// serialization stability.
type Preset struct {
	ID             int                      `json:"id"`
	Name           string                   `json:"name"`
	OutputChannels map[string]PresetChannel `json:"output_channels"`
	Standby        *bool                    `json:"standby,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// DeepCopy returns an independent copy of the preset.
func (p Preset) DeepCopy() Preset {
	next := p
	if p.OutputChannels != nil {
		next.OutputChannels = make(map[string]PresetChannel, len(p.OutputChannels))
		for k, v := range p.OutputChannels {
			next.OutputChannels[k] = v
		}
	}
	if p.Standby != nil {
		v := *p.Standby
		next.Standby = &v
	}
	return next
}

// Validate checks the preset against the device's channel count.
// Out-of-range values are rejected, never clamped.
func (p Preset) Validate(channels int) error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Msg: "preset name must not be empty"}
	}
	if len(p.OutputChannels) == 0 {
		return &ValidationError{Msg: "preset has no output channels"}
	}
	for key, ch := range p.OutputChannels {
		idx, err := strconv.Atoi(key)
		if err != nil || key != strconv.Itoa(idx) {
			return &ValidationError{Msg: fmt.Sprintf("channel key %q is not a canonical decimal index", key)}
		}
		if idx < 0 || idx >= channels {
			return &ValidationError{Msg: fmt.Sprintf("channel %d out of range (device has %d channels)", idx, channels)}
		}
		if ch.Gain < MinGain || ch.Gain > MaxGain {
			return &ValidationError{Msg: fmt.Sprintf("channel %d gain %g out of range [%g, %g]", idx, ch.Gain, MinGain, MaxGain)}
		}
	}
	return nil
}
