package models

// Channel is the live state of one amplified output channel.
type Channel struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	Gain float64 `json:"gain"` // linear gain, range [0.0, 2.0]
	Mute bool    `json:"mute"`
}

// Info is the amplifier's identity, read once at startup.
type Info struct {
	Model        string `json:"model,omitempty"`
	Serial       string `json:"serial,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

// State is the believed device state maintained by the coordinator.
// It is populated only by confirmed reads and applied optimistic writes;
// it is never persisted.
type State struct {
	Channels []Channel `json:"channels"`
	Standby  bool      `json:"standby"`
	Info     Info      `json:"info"`
}

// ChannelUpdate is a partial update to one channel. Nil fields are left
// unchanged; the fields supplied together form one batched write.
type ChannelUpdate struct {
	Gain *float64 `json:"gain,omitempty"`
	Mute *bool    `json:"mute,omitempty"`
	Name *string  `json:"name,omitempty"`
}

// DeepCopy returns an independent copy of the state.
func (s State) DeepCopy() State {
	next := State{
		Standby: s.Standby,
		Info:    s.Info,
	}
	next.Channels = make([]Channel, len(s.Channels))
	copy(next.Channels, s.Channels)
	return next
}

const (
	// DefaultChannels matches the Bias Q1.5+/Q2/Q5 output count.
	DefaultChannels = 4

	MinGain = 0.0
	MaxGain = 2.0
)
