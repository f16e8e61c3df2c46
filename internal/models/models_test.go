package models_test

import (
	"testing"

	"github.com/micro-nova/bias-go/internal/models"
)

func TestValueEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b models.Value
		want bool
	}{
		{"same float", models.FloatValue(0.75), models.FloatValue(0.75), true},
		{"different float", models.FloatValue(0.75), models.FloatValue(0.5), false},
		{"kind mismatch", models.FloatValue(1), models.IntValue(1), false},
		{"same string", models.StringValue("Main L"), models.StringValue("Main L"), true},
		{"same bool", models.BoolValue(true), models.BoolValue(true), true},
		{"different bool", models.BoolValue(true), models.BoolValue(false), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Errorf("Equal(%v, %v) = %t, want %t", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestValueTruthy(t *testing.T) {
	cases := []struct {
		name   string
		v      models.Value
		want   bool
		wantOK bool
	}{
		{"bool true", models.BoolValue(true), true, true},
		{"bool false", models.BoolValue(false), false, true},
		{"int one", models.IntValue(1), true, true},
		{"int zero", models.IntValue(0), false, true},
		{"float nonzero", models.FloatValue(1.0), true, true},
		{"string", models.StringValue("true"), false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.v.Truthy()
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("Truthy(%v) = (%t, %t), want (%t, %t)", tc.v, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func validPreset() models.Preset {
	return models.Preset{
		Name: "Evening",
		OutputChannels: map[string]models.PresetChannel{
			"0": {Gain: 0.75, Mute: false, Name: "Main L"},
			"3": {Gain: 0.30, Mute: true, Name: "Sub"},
		},
	}
}

func TestPresetValidate(t *testing.T) {
	if err := validPreset().Validate(4); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestPresetValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.Preset)
	}{
		{"empty name", func(p *models.Preset) { p.Name = "" }},
		{"whitespace name", func(p *models.Preset) { p.Name = "   " }},
		{"no channels", func(p *models.Preset) { p.OutputChannels = nil }},
		{"channel out of range", func(p *models.Preset) {
			p.OutputChannels["4"] = models.PresetChannel{Gain: 1.0}
		}},
		{"negative channel", func(p *models.Preset) {
			p.OutputChannels["-1"] = models.PresetChannel{Gain: 1.0}
		}},
		{"non-canonical key", func(p *models.Preset) {
			p.OutputChannels["01"] = models.PresetChannel{Gain: 1.0}
		}},
		{"gain too high", func(p *models.Preset) {
			p.OutputChannels["1"] = models.PresetChannel{Gain: 2.5}
		}},
		{"gain negative", func(p *models.Preset) {
			p.OutputChannels["1"] = models.PresetChannel{Gain: -0.1}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPreset()
			tc.mutate(&p)
			err := p.Validate(4)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if _, ok := err.(*models.ValidationError); !ok {
				t.Errorf("Validate() error type = %T, want *ValidationError", err)
			}
		})
	}
}

func TestStateDeepCopy(t *testing.T) {
	s := models.State{
		Channels: []models.Channel{{ID: 0, Name: "Main", Gain: 0.75}},
		Standby:  true,
	}
	cp := s.DeepCopy()
	cp.Channels[0].Gain = 1.5
	if s.Channels[0].Gain != 0.75 {
		t.Errorf("DeepCopy shares channel slice: original gain = %g", s.Channels[0].Gain)
	}
}

func TestPresetDeepCopy(t *testing.T) {
	standby := true
	p := models.Preset{
		Name:           "A",
		OutputChannels: map[string]models.PresetChannel{"0": {Gain: 1.0}},
		Standby:        &standby,
	}
	cp := p.DeepCopy()
	cp.OutputChannels["0"] = models.PresetChannel{Gain: 0.1}
	*cp.Standby = false

	if p.OutputChannels["0"].Gain != 1.0 {
		t.Error("DeepCopy shares OutputChannels map")
	}
	if !*p.Standby {
		t.Error("DeepCopy shares Standby pointer")
	}
}
