package camera

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/cjeanneret/ScanGo/internal/engine"
)

// MaxZoom is the largest digital zoom factor a track accepts.
const MaxZoom = 4.0

// ErrTorchUnsupported is returned when a torch constraint is applied to a
// track without a torch.
var ErrTorchUnsupported = errors.New("torch not supported by this camera")

// track implements engine.Track and engine.CapabilityNegotiator for the
// software cameras: zoom is a centre crop, torch a GPIO LED.
type track struct {
	mu    sync.Mutex
	zoom  float64
	torch *Torch // nil when no torch is wired
}

func newTrack(t *Torch) *track {
	return &track{zoom: 1, torch: t}
}

func (t *track) Capabilities() engine.Capabilities {
	return engine.Capabilities{Torch: t.torch != nil, ZoomMin: 1, ZoomMax: MaxZoom}
}

func (t *track) ApplyConstraints(c engine.Constraints) error {
	for _, set := range c.Advanced {
		if set.Zoom != nil {
			z := *set.Zoom
			if z < 1 || z > MaxZoom {
				return fmt.Errorf("zoom %.2f out of range [1, %.0f]", z, MaxZoom)
			}
			t.mu.Lock()
			t.zoom = z
			t.mu.Unlock()
		}
		if set.Torch != nil {
			if t.torch == nil {
				return ErrTorchUnsupported
			}
			if err := t.torch.Set(*set.Torch); err != nil {
				return fmt.Errorf("torch: %w", err)
			}
		}
	}
	return nil
}

func (t *track) zoomLevel() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.zoom
}

// applyZoom crops the centre 1/z of img and scales it back to img's size.
func applyZoom(img image.Image, z float64) image.Image {
	if z <= 1 {
		return img
	}
	b := img.Bounds()
	w, h := int(float64(b.Dx())/z), int(float64(b.Dy())/z)
	if w < 1 || h < 1 {
		return img
	}
	return imaging.Resize(imaging.CropCenter(img, w, h), b.Dx(), b.Dy(), imaging.Linear)
}
