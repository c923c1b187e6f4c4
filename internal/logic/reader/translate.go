package reader

import (
	"errors"
	"fmt"
)

// ReaderConfiguration is the declarative description of a scan, as set by
// the host. It is a value: build a new one to reconfigure.
type ReaderConfiguration struct {
	InputStream            InputStream `json:"inputStream"`
	Resolution             Resolution  `json:"resolution"`
	CameraFacingMode       FacingMode  `json:"cameraFacingMode"`
	PatchSize              PatchSize   `json:"patchSize"`
	HalfSample             bool        `json:"halfSample"`
	DrawDetectionIndicator bool        `json:"drawDetectionIndicator"`
	Frequency              int         `json:"frequency"` // scans per second, advisory to the engine
	Decoder                Symbology   `json:"decoder"`
}

// WithDecoder returns a copy of c using the given symbology.
func (c ReaderConfiguration) WithDecoder(s Symbology) ReaderConfiguration {
	c.Decoder = s
	return c
}

// Validate checks that every enumerated field holds a known value.
func (c ReaderConfiguration) Validate() error {
	var errs []error
	if !contains(inputStreams, c.InputStream) {
		errs = append(errs, fmt.Errorf("unknown input stream %q", c.InputStream))
	}
	if !contains(resolutions, c.Resolution) {
		errs = append(errs, fmt.Errorf("unknown resolution %q", c.Resolution))
	}
	if !contains(facingModes, c.CameraFacingMode) {
		errs = append(errs, fmt.Errorf("unknown camera facing mode %q", c.CameraFacingMode))
	}
	if !contains(patchSizes, c.PatchSize) {
		errs = append(errs, fmt.Errorf("unknown patch size %q", c.PatchSize))
	}
	if !contains(symbologies, c.Decoder) {
		errs = append(errs, &InvalidSymbologyError{Name: string(c.Decoder), Valid: SymbologyNames()})
	}
	if c.Frequency <= 0 {
		errs = append(errs, fmt.Errorf("frequency must be > 0, got %d", c.Frequency))
	}
	return errors.Join(errs...)
}

// StreamConstraints are the camera constraints requested for live video.
type StreamConstraints struct {
	FacingMode FacingMode `json:"facingMode"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
}

// InputStreamConfig describes the engine's frame source.
type InputStreamConfig struct {
	Type        InputStream        `json:"type,omitempty"`
	Target      string             `json:"target,omitempty"`
	Constraints *StreamConstraints `json:"constraints,omitempty"` // nil in single-image mode
}

// DecoderConfig lists the readers the engine runs on each frame.
type DecoderConfig struct {
	Readers []Symbology `json:"readers"`
}

// LocatorConfig tunes the engine's barcode locator.
type LocatorConfig struct {
	HalfSample bool      `json:"halfSample"`
	PatchSize  PatchSize `json:"patchSize"`
}

// EngineConfiguration is the engine-facing configuration derived from a
// ReaderConfiguration.
type EngineConfiguration struct {
	InputStream InputStreamConfig `json:"inputStream"`
	Frequency   int               `json:"frequency"`
	Decoder     DecoderConfig     `json:"decoder"`
	Locator     LocatorConfig     `json:"locator"`
	Locate      bool              `json:"locate,omitempty"`
	Src         string            `json:"src,omitempty"`
}

// Translate maps a ReaderConfiguration to the engine configuration used for
// live detection. target is the opaque render surface the engine draws into.
func Translate(c ReaderConfiguration, target string) EngineConfiguration {
	width, height := c.Resolution.Dimensions()
	return EngineConfiguration{
		InputStream: InputStreamConfig{
			Type:   c.InputStream,
			Target: target,
			Constraints: &StreamConstraints{
				FacingMode: c.CameraFacingMode,
				Width:      width,
				Height:     height,
			},
		},
		Frequency: c.Frequency,
		Decoder: DecoderConfig{
			Readers: []Symbology{c.Decoder},
		},
		Locator: LocatorConfig{
			HalfSample: c.HalfSample,
			PatchSize:  c.PatchSize,
		},
	}
}

// TranslateImage derives the single-image variant of live: no stream type,
// no camera constraints, locating enabled and src as the image reference.
// live is not modified.
func TranslateImage(live EngineConfiguration, src string) EngineConfiguration {
	img := live
	img.InputStream = InputStreamConfig{Target: live.InputStream.Target}
	img.Decoder.Readers = append([]Symbology(nil), live.Decoder.Readers...)
	img.Locate = true
	img.Src = src
	return img
}

// Reader returns the single configured decoder reader.
func (c EngineConfiguration) Reader() Symbology {
	if len(c.Decoder.Readers) == 0 {
		return ""
	}
	return c.Decoder.Readers[0]
}
