package camera

import (
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/cjeanneret/ScanGo/internal/engine"
	"github.com/cjeanneret/ScanGo/internal/logic/reader"
)

// StaticCamera serves the same frame forever. With a nil image it serves a
// blank white frame of the requested size. Used for development on PC.
type StaticCamera struct {
	img   image.Image
	torch *Torch

	mu     sync.Mutex
	width  int
	height int
	track  *track
}

func NewStaticCamera(img image.Image, torch *Torch) *StaticCamera {
	return &StaticCamera{img: img, torch: torch}
}

func (c *StaticCamera) Open(sc reader.StreamConstraints) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = sc.Width, sc.Height
	if c.width <= 0 || c.height <= 0 {
		c.width, c.height = reader.Res640x480.Dimensions()
	}
	c.track = newTrack(c.torch)
	return nil
}

func (c *StaticCamera) Frame() (image.Image, error) {
	c.mu.Lock()
	w, h, t := c.width, c.height, c.track
	c.mu.Unlock()
	if t == nil {
		return nil, ErrNotOpen
	}
	if c.img == nil {
		return imaging.New(w, h, color.White), nil
	}
	return shape(c.img, w, h, t.zoomLevel()), nil
}

func (c *StaticCamera) Track() engine.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.track == nil {
		return nil
	}
	return c.track
}

func (c *StaticCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.track == nil {
		return nil
	}
	c.track = nil
	if c.torch != nil {
		return c.torch.Set(false)
	}
	return nil
}
