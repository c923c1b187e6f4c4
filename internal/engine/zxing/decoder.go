package zxing

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"github.com/cjeanneret/ScanGo/internal/engine"
	"github.com/cjeanneret/ScanGo/internal/logic/geometry"
	"github.com/cjeanneret/ScanGo/internal/logic/reader"
)

// ErrUnsupportedDecoder is returned for symbologies gozxing has no reader for.
var ErrUnsupportedDecoder = errors.New("decoder not supported by this engine")

// boxMargin pads the scan line into the matched box, in frame pixels.
const boxMargin = 10

// decoder runs one gozxing reader. gozxing readers keep state between
// calls, so a decoder must not be shared between goroutines.
type decoder struct {
	sym      reader.Symbology
	r        gozxing.Reader
	validate func(string) bool
}

func newDecoder(sym reader.Symbology) (*decoder, error) {
	d := &decoder{sym: sym}
	switch sym {
	case reader.Code128:
		d.r = oned.NewCode128Reader()
	case reader.Code39:
		d.r = oned.NewCode39Reader()
	case reader.Code39VIN:
		d.r = oned.NewCode39Reader()
		d.validate = isVIN
	case reader.Code93:
		d.r = oned.NewCode93Reader()
	case reader.EAN:
		d.r = oned.NewEAN13Reader()
	case reader.EAN8:
		d.r = oned.NewEAN8Reader()
	case reader.UPC:
		d.r = oned.NewUPCAReader()
	case reader.UPCE:
		d.r = oned.NewUPCEReader()
	case reader.Codabar:
		d.r = oned.NewCodaBarReader()
	case reader.I2of5:
		d.r = oned.NewITFReader()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDecoder, sym)
	}
	return d, nil
}

// decode looks for a code in img. With halfSample the image is decoded at
// half resolution and geometry is mapped back to img coordinates. The
// result never is nil; it carries no code when nothing was decoded.
func (d *decoder) decode(img image.Image, halfSample, tryHarder bool) *engine.Result {
	scale := 1.0
	if halfSample {
		if b := img.Bounds(); b.Dx() >= 2 && b.Dy() >= 2 {
			img = imaging.Resize(img, b.Dx()/2, b.Dy()/2, imaging.Box)
			scale = 2
		}
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return &engine.Result{}
	}
	hints := map[gozxing.DecodeHintType]interface{}{}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	res, err := d.r.Decode(bmp, hints)
	d.r.Reset()
	if err != nil {
		return &engine.Result{}
	}

	text := res.GetText()
	if d.validate != nil && !d.validate(text) {
		return &engine.Result{}
	}

	var line geometry.Path
	for _, p := range res.GetResultPoints() {
		line = append(line, geometry.Point{X: p.GetX(), Y: p.GetY()})
	}
	line = line.Scale(scale)
	box := geometry.BoxAroundLine(line, boxMargin*scale)

	r := &engine.Result{
		CodeResult: &engine.CodeResult{Code: text, Format: string(d.sym)},
		Box:        box,
		Line:       line,
	}
	if box != nil {
		r.Boxes = []geometry.Path{box}
	}
	return r
}

// isVIN reports whether s looks like a vehicle identification number:
// 17 characters, letters I, O and Q excluded.
func isVIN(s string) bool {
	if len(s) != 17 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z' && !strings.ContainsRune("IOQ", c):
		default:
			return false
		}
	}
	return true
}
