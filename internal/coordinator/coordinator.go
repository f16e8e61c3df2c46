// Package coordinator owns the believed live state of one amplifier and
// reconciles its two update sources: the periodic poll and optimistic
// writes issued on behalf of callers.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/bias-go/internal/bias"
	"github.com/micro-nova/bias-go/internal/models"
)

// Transport is the device access the coordinator needs. *bias.Client
// implements it; tests substitute a fake.
type Transport interface {
	Read(ctx context.Context, paths []string) ([]bias.Result, error)
	Write(ctx context.Context, writes []bias.Write) ([]bias.Result, error)
}

// Publisher receives a copy of the state after every change.
type Publisher interface {
	Publish(state models.State)
}

const (
	// DefaultInterval matches the original integration's scan interval.
	DefaultInterval = 10 * time.Second

	minInterval = time.Second
	maxInterval = 5 * time.Minute
)

// field identifies one snapshot attribute by its parameter path.
type field struct {
	ch   int    // -1 for device-wide attributes
	attr string // "gain" | "mute" | "name" | "standby"
}

// Coordinator maintains the authoritative in-memory device snapshot.
// The snapshot is guarded so readers never observe a partially-updated
// channel record; mutations happen only under the write lock, whole
// poll or whole logical write at a time.
type Coordinator struct {
	tr       Transport
	bus      Publisher
	channels int
	interval time.Duration

	mu        sync.RWMutex
	state     models.State
	populated bool
	// stamps records the completion time of the last optimistic write
	// per path. A poll that started before a stamp may carry stale data
	// for that field and must not un-apply the write.
	stamps map[string]time.Time
	fields map[string]field
}

// New creates a coordinator for a device with the given channel count.
// The poll interval is clamped to [1s, 5m]; zero selects the default.
func New(tr Transport, bus Publisher, channels int, interval time.Duration) *Coordinator {
	if channels <= 0 {
		channels = models.DefaultChannels
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if interval < minInterval {
		interval = minInterval
	}
	if interval > maxInterval {
		interval = maxInterval
	}

	c := &Coordinator{
		tr:       tr,
		bus:      bus,
		channels: channels,
		interval: interval,
		stamps:   make(map[string]time.Time),
		fields:   make(map[string]field),
	}

	c.state.Channels = make([]models.Channel, channels)
	for ch := 0; ch < channels; ch++ {
		c.state.Channels[ch] = models.Channel{ID: ch, Name: fmt.Sprintf("Output %d", ch+1), Gain: 1.0}
		c.fields[bias.ChannelGain.Path(ch)] = field{ch: ch, attr: "gain"}
		c.fields[bias.ChannelMute.Path(ch)] = field{ch: ch, attr: "mute"}
		c.fields[bias.ChannelName.Path(ch)] = field{ch: ch, attr: "name"}
	}
	c.fields[bias.PathStandby] = field{ch: -1, attr: "standby"}

	return c
}

// Channels returns the device's channel count.
func (c *Coordinator) Channels() int { return c.channels }

// Interval returns the clamped poll interval.
func (c *Coordinator) Interval() time.Duration { return c.interval }

// State returns a copy of the current snapshot and whether any poll has
// completed successfully since startup.
func (c *Coordinator) State() (models.State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.DeepCopy(), c.populated
}

// SetInfo records the device identity read at startup.
func (c *Coordinator) SetInfo(info models.Info) {
	c.mu.Lock()
	c.state.Info = info
	c.mu.Unlock()
}

// Run polls the device on the configured interval until ctx is
// cancelled. Poll failures are logged and retried on the next tick; a
// cancelled cycle never leaves a half-merged snapshot because merging
// happens atomically after the read returns.
func (c *Coordinator) Run(ctx context.Context) {
	if err := c.Poll(ctx); err != nil {
		slog.Warn("coordinator: initial poll failed", "err", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Poll(ctx); err != nil {
				slog.Warn("coordinator: poll failed", "err", err)
			}
		}
	}
}

// Poll runs one full read cycle: every tracked attribute for every
// channel plus device-wide attributes, in a single batch. On transport
// or protocol failure the previous snapshot is left untouched.
func (c *Coordinator) Poll(ctx context.Context) error {
	started := time.Now()
	paths := c.pollPaths()
	results, err := c.tr.Read(ctx, paths)
	if err != nil {
		return err
	}
	c.merge(started, results)
	return nil
}

func (c *Coordinator) pollPaths() []string {
	paths := make([]string, 0, c.channels*3+1)
	for ch := 0; ch < c.channels; ch++ {
		paths = append(paths,
			bias.ChannelGain.Path(ch),
			bias.ChannelMute.Path(ch),
			bias.ChannelName.Path(ch),
		)
	}
	return append(paths, bias.PathStandby)
}

// merge applies one poll's results under the write lock. A poll only
// overwrites fields it actually read this cycle, and skips any field
// optimistically written at or after the poll started: that write
// completed later than the data the poll is carrying.
func (c *Coordinator) merge(started time.Time, results []bias.Result) {
	c.mu.Lock()
	changed := false
	for _, r := range results {
		if r.Err != nil {
			slog.Debug("coordinator: poll value rejected", "path", r.Path, "err", r.Err)
			continue
		}
		if ts, ok := c.stamps[r.Path]; ok && !ts.Before(started) {
			continue
		}
		if c.applyValue(r.Path, r.Value) {
			changed = true
		}
	}
	c.populated = true
	state := c.state.DeepCopy()
	c.mu.Unlock()

	if changed && c.bus != nil {
		c.bus.Publish(state)
	}
}

// applyValue sets one snapshot field from a typed value. Must be called
// with the write lock held. Returns whether the field changed.
func (c *Coordinator) applyValue(path string, v models.Value) bool {
	f, ok := c.fields[path]
	if !ok {
		slog.Debug("coordinator: untracked path in response", "path", path)
		return false
	}
	switch f.attr {
	case "gain":
		if v.Kind != models.KindFloat {
			return false
		}
		if c.state.Channels[f.ch].Gain == v.Flt {
			return false
		}
		c.state.Channels[f.ch].Gain = v.Flt
	case "mute":
		b, ok := v.Truthy()
		if !ok || c.state.Channels[f.ch].Mute == b {
			return false
		}
		c.state.Channels[f.ch].Mute = b
	case "name":
		if v.Kind != models.KindString || c.state.Channels[f.ch].Name == v.Str {
			return false
		}
		c.state.Channels[f.ch].Name = v.Str
	case "standby":
		b, ok := v.Truthy()
		if !ok || c.state.Standby == b {
			return false
		}
		c.state.Standby = b
	}
	return true
}
