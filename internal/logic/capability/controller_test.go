package capability

import (
	"errors"
	"testing"

	"github.com/cjeanneret/ScanGo/internal/engine"
)

// plainTrack cannot negotiate capabilities.
type plainTrack struct {
	applied []engine.Constraints
}

func (t *plainTrack) ApplyConstraints(c engine.Constraints) error {
	t.applied = append(t.applied, c)
	return nil
}

// negotiableTrack reports capabilities and records constraints.
type negotiableTrack struct {
	plainTrack
	err error
}

func (t *negotiableTrack) Capabilities() engine.Capabilities {
	return engine.Capabilities{Torch: true, ZoomMin: 1, ZoomMax: 4}
}

func (t *negotiableTrack) ApplyConstraints(c engine.Constraints) error {
	if t.err != nil {
		return t.err
	}
	return t.plainTrack.ApplyConstraints(c)
}

type staticProvider struct{ track engine.Track }

func (p staticProvider) ActiveTrack() engine.Track { return p.track }

func TestSetTorch_NoTrackIsNoop(t *testing.T) {
	c := NewTrackController(staticProvider{})
	if err := c.SetTorch(true); err != nil {
		t.Errorf("SetTorch without track: %v", err)
	}
	if err := c.SetZoom(2); err != nil {
		t.Errorf("SetZoom without track: %v", err)
	}
}

func TestSetTorch_NilProviderIsNoop(t *testing.T) {
	c := NewTrackController(nil)
	if err := c.SetTorch(true); err != nil {
		t.Errorf("SetTorch with nil provider: %v", err)
	}
}

func TestSetTorch_NonNegotiableTrackIsNoop(t *testing.T) {
	track := &plainTrack{}
	c := NewTrackController(staticProvider{track: track})

	if err := c.SetTorch(true); err != nil {
		t.Fatalf("SetTorch: %v", err)
	}
	if len(track.applied) != 0 {
		t.Errorf("no constraints should reach a non-negotiable track, got %v", track.applied)
	}
}

func TestSetTorch_Applied(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		track := &negotiableTrack{}
		c := NewTrackController(staticProvider{track: track})

		if err := c.SetTorch(enabled); err != nil {
			t.Fatalf("SetTorch(%v): %v", enabled, err)
		}
		if len(track.applied) != 1 || len(track.applied[0].Advanced) != 1 {
			t.Fatalf("expected one advanced constraint, got %+v", track.applied)
		}
		set := track.applied[0].Advanced[0]
		if set.Torch == nil || *set.Torch != enabled {
			t.Errorf("torch constraint = %v, want %v", set.Torch, enabled)
		}
		if set.Zoom != nil {
			t.Error("torch call should not set zoom")
		}
	}
}

func TestSetZoom_Applied(t *testing.T) {
	track := &negotiableTrack{}
	c := NewTrackController(staticProvider{track: track})

	if err := c.SetZoom(2.5); err != nil {
		t.Fatalf("SetZoom: %v", err)
	}
	set := track.applied[0].Advanced[0]
	if set.Zoom == nil || *set.Zoom != 2.5 {
		t.Errorf("zoom constraint = %v, want 2.5", set.Zoom)
	}
	if set.Torch != nil {
		t.Error("zoom call should not set torch")
	}
}

func TestApplyError(t *testing.T) {
	applyErr := errors.New("overconstrained")
	c := NewTrackController(staticProvider{track: &negotiableTrack{err: applyErr}})

	err := c.SetZoom(10)
	if !errors.Is(err, applyErr) {
		t.Errorf("expected wrapped apply error, got %v", err)
	}
}

func TestFollowsActiveTrack(t *testing.T) {
	m := engine.NewMock()
	track := &negotiableTrack{}
	m.Track = track
	c := NewTrackController(m)

	if err := c.SetTorch(true); err != nil {
		t.Fatal(err)
	}
	if len(track.applied) != 0 {
		t.Error("engine not started: track should not be active")
	}

	m.Start()
	if err := c.SetTorch(true); err != nil {
		t.Fatal(err)
	}
	if len(track.applied) != 1 {
		t.Errorf("expected constraint on active track, got %d", len(track.applied))
	}
}

func TestNoop(t *testing.T) {
	var c Controller = Noop{}
	if c.SetTorch(true) != nil || c.SetZoom(3) != nil {
		t.Error("Noop should never fail")
	}
}
