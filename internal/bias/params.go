// Package bias speaks the Bias amplifier's generic path-addressed
// read/write protocol: parameter descriptors, the batch wire codec, and
// the HTTP transport client.
package bias

import (
	"fmt"
	"strings"

	"github.com/micro-nova/bias-go/internal/models"
)

// Parameter paths without an index template.
const (
	PathStandby = "/Device/Audio/Presets/Live/Generals/Standby/Value"

	PathModelName    = "/Device/Config/Hardware/Model/Name"
	PathModelSerial  = "/Device/Config/Hardware/Model/Serial"
	PathManufacturer = "/Device/Config/Hardware/Manufacturer"
)

// Param describes one templated device parameter: where it lives in the
// tree, what type it carries, and (for floats) its valid range. The
// device's parameter tree is not mirrored as a type hierarchy; this
// closed set plus index substitution covers everything the core tracks.
type Param struct {
	template string
	Kind     models.Kind
	Min, Max float64
}

var (
	ChannelGain = Param{
		template: "/Device/Audio/Presets/Live/OutputProcess/Channels/Channel-%d/Gain/Value",
		Kind:     models.KindFloat,
		Min:      models.MinGain,
		Max:      models.MaxGain,
	}
	ChannelMute = Param{
		template: "/Device/Audio/Presets/Live/OutputProcess/Channels/Channel-%d/Mute/Value",
		Kind:     models.KindBool,
	}
	ChannelName = Param{
		template: "/Device/Audio/Presets/Live/OutputProcess/Channels/Channel-%d/Name",
		Kind:     models.KindString,
	}
)

// Path resolves the template for the given channel index.
func (p Param) Path(ch int) string {
	if !strings.Contains(p.template, "%d") {
		return p.template
	}
	return fmt.Sprintf(p.template, ch)
}

// Check validates a value against the parameter's kind and range.
func (p Param) Check(v models.Value) error {
	if v.Kind != p.Kind {
		return &models.ValidationError{
			Msg: fmt.Sprintf("parameter %s expects %s, got %s", p.template, p.Kind, v.Kind),
		}
	}
	if p.Kind == models.KindFloat && (p.Min != 0 || p.Max != 0) {
		if v.Flt < p.Min || v.Flt > p.Max {
			return &models.ValidationError{
				Msg: fmt.Sprintf("parameter %s value %g out of range [%g, %g]", p.template, v.Flt, p.Min, p.Max),
			}
		}
	}
	return nil
}
