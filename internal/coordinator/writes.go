package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/micro-nova/bias-go/internal/bias"
	"github.com/micro-nova/bias-go/internal/models"
)

// SetChannel applies a partial update to one channel as a single
// batched write. On success the snapshot reflects the new values
// immediately, ahead of the next confirming poll.
func (c *Coordinator) SetChannel(ctx context.Context, ch int, upd models.ChannelUpdate) error {
	if err := c.checkChannel(ch); err != nil {
		return err
	}

	var writes []bias.Write
	if upd.Gain != nil {
		v := models.FloatValue(*upd.Gain)
		if err := bias.ChannelGain.Check(v); err != nil {
			return err
		}
		writes = append(writes, bias.Write{Path: bias.ChannelGain.Path(ch), Value: v})
	}
	if upd.Mute != nil {
		writes = append(writes, bias.Write{Path: bias.ChannelMute.Path(ch), Value: models.BoolValue(*upd.Mute)})
	}
	if upd.Name != nil {
		if *upd.Name == "" {
			return &models.ValidationError{Msg: "channel name must not be empty"}
		}
		writes = append(writes, bias.Write{Path: bias.ChannelName.Path(ch), Value: models.StringValue(*upd.Name)})
	}
	if len(writes) == 0 {
		return &models.ValidationError{Msg: "no channel fields supplied"}
	}
	return c.write(ctx, writes)
}

// SetGain writes one channel's gain.
func (c *Coordinator) SetGain(ctx context.Context, ch int, gain float64) error {
	return c.SetChannel(ctx, ch, models.ChannelUpdate{Gain: &gain})
}

// SetMute writes one channel's mute flag.
func (c *Coordinator) SetMute(ctx context.Context, ch int, mute bool) error {
	return c.SetChannel(ctx, ch, models.ChannelUpdate{Mute: &mute})
}

// SetStandby writes the device-wide standby flag.
func (c *Coordinator) SetStandby(ctx context.Context, standby bool) error {
	return c.write(ctx, []bias.Write{{Path: bias.PathStandby, Value: models.BoolValue(standby)}})
}

// write issues one logical change and fails it if any element was
// rejected. Accepted elements are already reflected in the snapshot by
// ApplyWrites; a rejected element was never applied by the device, so
// its snapshot field is untouched.
func (c *Coordinator) write(ctx context.Context, writes []bias.Write) error {
	results, err := c.ApplyWrites(ctx, writes)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// ApplyWrites issues one batched write through the transport and
// optimistically applies every accepted element to the snapshot,
// stamping each field with the write's completion time so an in-flight
// poll cannot un-apply it. Per-value rejections are reported in the
// returned slice, aligned with writes; only transport-level failures
// error the call, and those leave the snapshot untouched.
func (c *Coordinator) ApplyWrites(ctx context.Context, writes []bias.Write) ([]bias.Result, error) {
	results, err := c.tr.Write(ctx, writes)
	if err != nil {
		return nil, err
	}
	if len(results) != len(writes) {
		return nil, &models.ProtocolError{
			Msg: fmt.Sprintf("write returned %d results for %d values", len(results), len(writes)),
		}
	}

	done := time.Now()
	c.mu.Lock()
	changed := false
	for i, r := range results {
		if r.Err != nil {
			continue
		}
		if c.applyValue(writes[i].Path, writes[i].Value) {
			changed = true
		}
		c.stamps[writes[i].Path] = done
	}
	state := c.state.DeepCopy()
	c.mu.Unlock()

	if changed && c.bus != nil {
		c.bus.Publish(state)
	}
	return results, nil
}

func (c *Coordinator) checkChannel(ch int) error {
	if ch < 0 || ch >= c.channels {
		return &models.ValidationError{
			Msg: fmt.Sprintf("channel %d out of range (device has %d channels)", ch, c.channels),
		}
	}
	return nil
}
