// Package camera provides the frame sources the software engine reads
// from, and the camera track used to drive torch and zoom.
package camera

import (
	"errors"
	"image"

	"github.com/cjeanneret/ScanGo/internal/engine"
	"github.com/cjeanneret/ScanGo/internal/logic/reader"
)

// ErrNotOpen is returned by Frame when the camera is not streaming.
var ErrNotOpen = errors.New("camera not open")

// Camera is the high-level interface used by the engine.
// It represents an abstract "camera", regardless of where frames come from
// (image directory, generated frames, a video device).
type Camera interface {
	// Open starts streaming with the requested constraints.
	Open(c reader.StreamConstraints) error
	// Frame returns the next frame, sized to the open constraints.
	Frame() (image.Image, error)
	// Track returns the track of the open stream, or nil.
	Track() engine.Track
	// Close stops streaming. Closing a closed camera is a no-op.
	Close() error
}
