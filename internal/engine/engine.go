// Package engine defines the decoding engine the scanner drives: camera
// stream acquisition, per-frame barcode location and decoding, and the
// camera track and overlay surface it exposes.
package engine

import (
	"github.com/cjeanneret/ScanGo/internal/logic/geometry"
	"github.com/cjeanneret/ScanGo/internal/logic/reader"
)

// CodeResult is a decoded barcode value.
type CodeResult struct {
	Code   string `json:"code"`
	Format string `json:"format"`
}

// Result is what the engine reports for one analyzed frame or image.
// Geometry is only filled when the engine located something.
type Result struct {
	CodeResult *CodeResult     `json:"codeResult,omitempty"`
	Box        geometry.Path   `json:"box,omitempty"`   // matched box
	Boxes      []geometry.Path `json:"boxes,omitempty"` // every candidate box, may include Box
	Line       geometry.Path   `json:"line,omitempty"`  // scan line through the code
}

// HasCode reports whether r carries a non-empty decoded code.
func (r *Result) HasCode() bool {
	return r != nil && r.CodeResult != nil && r.CodeResult.Code != ""
}

// ResultFunc receives engine results.
type ResultFunc func(*Result)

// Engine is the decoding engine. It behaves as a single camera-owning
// resource: at most one live run at a time.
//
// Callbacks are delivered one at a time, on an engine goroutine, and never
// from inside the Init, Start or Stop call that triggered them.
type Engine interface {
	// Init prepares the engine and camera for cfg; done receives nil on
	// success.
	Init(cfg reader.EngineConfiguration, done func(error))
	// Start begins frame production.
	Start()
	// Stop halts frame production and releases the camera.
	Stop()
	// DecodeSingle decodes cfg.Src once.
	DecodeSingle(cfg reader.EngineConfiguration, done ResultFunc)
	// OnDetected subscribes to frames where a code was decoded.
	OnDetected(fn ResultFunc) (unsubscribe func())
	// OnProcessed subscribes to every analyzed frame.
	OnProcessed(fn ResultFunc) (unsubscribe func())
	TrackProvider
	// Overlay returns the debug drawing surface, or nil if there is none.
	Overlay() Canvas
}

// TrackProvider exposes the camera track of the running stream.
type TrackProvider interface {
	// ActiveTrack returns nil when no stream is active.
	ActiveTrack() Track
}

// ConstraintSet is one entry of an advanced constraints list.
type ConstraintSet struct {
	Torch *bool    `json:"torch,omitempty"`
	Zoom  *float64 `json:"zoom,omitempty"`
}

// Constraints mirrors the media track constraints shape.
type Constraints struct {
	Advanced []ConstraintSet `json:"advanced"`
}

// Track is an active camera track.
type Track interface {
	ApplyConstraints(c Constraints) error
}

// Capabilities describes what a track can do.
type Capabilities struct {
	Torch   bool
	ZoomMin float64
	ZoomMax float64
}

// CapabilityNegotiator is implemented by tracks that can report their
// capabilities. Tracks without it cannot be tuned.
type CapabilityNegotiator interface {
	Capabilities() Capabilities
}

// Style is a stroke style for the overlay.
type Style struct {
	Color     string `json:"color"`
	LineWidth int    `json:"lineWidth"`
}

// Overlay styles.
var (
	CandidateStyle = Style{Color: "green", LineWidth: 2}
	MatchedStyle   = Style{Color: "#00F", LineWidth: 2}
	ScanLineStyle  = Style{Color: "red", LineWidth: 3}
)

// Canvas is the debug overlay drawn above the video.
type Canvas interface {
	Clear()
	DrawPath(path geometry.Path, style Style)
}
