package capability

import (
	"fmt"

	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/engine"
)

// Controller tunes the active camera. Calls are best effort: without an
// active, negotiable track they do nothing.
type Controller interface {
	SetTorch(enabled bool) error
	SetZoom(level float64) error
}

// TrackController applies constraints to whatever track the provider has
// active at call time.
type TrackController struct {
	tracks engine.TrackProvider
}

func NewTrackController(p engine.TrackProvider) *TrackController {
	return &TrackController{tracks: p}
}

// SetTorch turns the torch on or off. Only works on compatible devices.
func (c *TrackController) SetTorch(enabled bool) error {
	return c.apply("torch", engine.ConstraintSet{Torch: &enabled})
}

// SetZoom sets the zoom level. Only works on compatible devices.
func (c *TrackController) SetZoom(level float64) error {
	return c.apply("zoom", engine.ConstraintSet{Zoom: &level})
}

func (c *TrackController) apply(name string, set engine.ConstraintSet) error {
	if c.tracks == nil {
		return nil
	}
	track := c.tracks.ActiveTrack()
	if track == nil {
		debug.Trace("capability %s: no active track", name)
		return nil
	}
	neg, ok := track.(engine.CapabilityNegotiator)
	if !ok {
		debug.Trace("capability %s: track cannot negotiate capabilities", name)
		return nil
	}
	debug.Trace("capability %s: track capabilities %+v", name, neg.Capabilities())

	if err := track.ApplyConstraints(engine.Constraints{Advanced: []engine.ConstraintSet{set}}); err != nil {
		return fmt.Errorf("apply %s constraint: %w", name, err)
	}
	return nil
}

// Noop ignores every call.
type Noop struct{}

func (Noop) SetTorch(bool) error   { return nil }
func (Noop) SetZoom(float64) error { return nil }
