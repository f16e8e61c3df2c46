package scenes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/micro-nova/bias-go/internal/bias"
	"github.com/micro-nova/bias-go/internal/models"
)

// fakeController stands in for the coordinator: it serves a canned
// snapshot and applies accepted writes back into it.
type fakeController struct {
	state     models.State
	populated bool
	reject    map[string]int
	writes    []bias.Write
}

func newFakeController() *fakeController {
	c := &fakeController{populated: true, reject: make(map[string]int)}
	c.state.Channels = make([]models.Channel, 4)
	for ch := range c.state.Channels {
		c.state.Channels[ch] = models.Channel{ID: ch, Name: "Zone", Gain: 0.5}
	}
	return c
}

func (c *fakeController) State() (models.State, bool) {
	return c.state.DeepCopy(), c.populated
}

func (c *fakeController) ApplyWrites(ctx context.Context, writes []bias.Write) ([]bias.Result, error) {
	c.writes = append(c.writes, writes...)
	results := make([]bias.Result, len(writes))
	for i, w := range writes {
		if code, ok := c.reject[w.Path]; ok {
			results[i] = bias.Result{Path: w.Path, Err: &models.RemoteRejection{Path: w.Path, Code: code}}
			continue
		}
		c.apply(w)
		results[i] = bias.Result{Path: w.Path}
	}
	return results, nil
}

func (c *fakeController) apply(w bias.Write) {
	for ch := range c.state.Channels {
		switch w.Path {
		case bias.ChannelGain.Path(ch):
			c.state.Channels[ch].Gain = w.Value.Flt
			return
		case bias.ChannelMute.Path(ch):
			c.state.Channels[ch].Mute = w.Value.Bool
			return
		}
	}
	if w.Path == bias.PathStandby {
		c.state.Standby = w.Value.Bool
	}
}

func newTestEngine(t *testing.T) (*Engine, *fakeController) {
	t.Helper()
	store, _ := newTestStore(t)
	ctrl := newFakeController()
	return NewEngine(store, ctrl), ctrl
}

func TestCaptureRequiresPolledDevice(t *testing.T) {
	e, ctrl := newTestEngine(t)
	ctrl.populated = false

	_, err := e.Capture("Too Early")
	if _, ok := err.(*models.ValidationError); !ok {
		t.Fatalf("Capture before poll err = %v, want *ValidationError", err)
	}
}

func TestCaptureSnapshotsState(t *testing.T) {
	e, ctrl := newTestEngine(t)
	ctrl.state.Channels[0].Gain = 0.75
	ctrl.state.Channels[0].Mute = true
	ctrl.state.Standby = true

	p, err := e.Capture("Evening")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if p.ID != 1 || p.Name != "Evening" {
		t.Errorf("captured preset = %+v", p)
	}
	if got := p.OutputChannels["0"]; got.Gain != 0.75 || !got.Mute {
		t.Errorf("channel 0 = %+v", got)
	}
	if p.Standby == nil || !*p.Standby {
		t.Error("standby not captured")
	}
}

func TestApplyRestoresCapturedState(t *testing.T) {
	e, ctrl := newTestEngine(t)
	ctrl.state.Channels[0].Gain = 0.75
	ctrl.state.Channels[3].Gain = 0.30

	p, err := e.Capture("Evening")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	// A live change drifts the device away from the preset.
	ctrl.state.Channels[0].Gain = 1.0

	report, err := e.Apply(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Rejected != 0 {
		t.Errorf("report = %+v", report)
	}
	// 4 channels x (gain, mute) + standby
	if report.Applied != 9 {
		t.Errorf("applied = %d, want 9", report.Applied)
	}

	state, _ := ctrl.State()
	if got := state.Channels[0].Gain; got != 0.75 {
		t.Errorf("channel 0 gain after apply = %g, want 0.75", got)
	}
	if got := state.Channels[3].Gain; got != 0.30 {
		t.Errorf("channel 3 gain after apply = %g, want 0.30", got)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	e, ctrl := newTestEngine(t)
	p, _ := e.Capture("Same")

	for i := 0; i < 2; i++ {
		if _, err := e.Apply(context.Background(), p.ID); err != nil {
			t.Fatalf("Apply #%d: %v", i+1, err)
		}
	}
	state, _ := ctrl.State()
	if state.Channels[0].Gain != 0.5 {
		t.Errorf("gain after double apply = %g", state.Channels[0].Gain)
	}
}

func TestApplyStandbyRejectionIsWarning(t *testing.T) {
	e, ctrl := newTestEngine(t)
	ctrl.reject[bias.PathStandby] = 30

	p, _ := e.Capture("Warn")
	report, err := e.Apply(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Rejected != 1 {
		t.Fatalf("report = %+v", report)
	}
	last := report.Outcomes[len(report.Outcomes)-1]
	if last.Path != bias.PathStandby || last.OK || !last.Warning {
		t.Errorf("standby outcome = %+v, want warning", last)
	}
}

func TestApplyChannelRejectionIsNotWarning(t *testing.T) {
	e, ctrl := newTestEngine(t)
	ctrl.reject[bias.ChannelGain.Path(1)] = 30

	p, _ := e.Capture("Partial")
	report, err := e.Apply(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	found := false
	for _, o := range report.Outcomes {
		if o.Path == bias.ChannelGain.Path(1) {
			found = true
			if o.OK || o.Warning {
				t.Errorf("gain outcome = %+v, want plain rejection", o)
			}
		}
	}
	if !found {
		t.Error("no outcome for the rejected gain")
	}
}

// A document edited to hold an out-of-range gain must never make it to
// the device or the snapshot.
func TestApplyNeverShipsOutOfRangeDocument(t *testing.T) {
	dir := t.TempDir()
	doc := `{"version": 1, "next_id": 2, "scenes": [
		{"id": 1, "name": "Loud", "output_channels": {"0": {"gain": 5.0}}}
	]}`
	if err := os.WriteFile(filepath.Join(dir, presetsFileName), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewJSONStore(dir, 4)
	if err == nil {
		t.Fatal("invalid document loaded without error")
	}
	defer store.Close()

	ctrl := newFakeController()
	e := NewEngine(store, ctrl)

	if _, err := e.Apply(context.Background(), 1); err != ErrNotFound {
		t.Fatalf("Apply err = %v, want ErrNotFound", err)
	}
	if len(ctrl.writes) != 0 {
		t.Errorf("%d writes reached the device", len(ctrl.writes))
	}
	state, _ := ctrl.State()
	if got := state.Channels[0].Gain; got != 0.5 {
		t.Errorf("snapshot gain = %g, want untouched 0.5", got)
	}
}

func TestApplyMissingPreset(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Apply(context.Background(), 99); err != ErrNotFound {
		t.Errorf("Apply(99) err = %v, want ErrNotFound", err)
	}
}

func TestUpdateRecaptures(t *testing.T) {
	e, ctrl := newTestEngine(t)
	orig, _ := e.Capture("Scene")

	ctrl.state.Channels[2].Gain = 1.75
	upd, err := e.Update(orig.ID)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Name != "Scene" || upd.ID != orig.ID {
		t.Errorf("update changed identity: %+v", upd)
	}
	if upd.OutputChannels["2"].Gain != 1.75 {
		t.Errorf("update did not recapture: %+v", upd.OutputChannels["2"])
	}
}

func TestWritesForPresetOrdering(t *testing.T) {
	standby := false
	p := models.Preset{
		Name: "Ordered",
		OutputChannels: map[string]models.PresetChannel{
			"2": {Gain: 0.2},
			"0": {Gain: 0.0},
			"1": {Gain: 0.1},
		},
		Standby: &standby,
	}
	writes := writesForPreset(p)
	if len(writes) != 7 {
		t.Fatalf("got %d writes, want 7", len(writes))
	}
	wantFirst := bias.ChannelGain.Path(0)
	if writes[0].Path != wantFirst {
		t.Errorf("first write path = %q, want %q", writes[0].Path, wantFirst)
	}
	if writes[6].Path != bias.PathStandby {
		t.Errorf("last write path = %q, want standby", writes[6].Path)
	}
}
