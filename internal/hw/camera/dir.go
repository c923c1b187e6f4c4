package camera

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/engine"
	"github.com/cjeanneret/ScanGo/internal/logic/reader"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// DirCamera replays the images of a directory as a video stream, looping
// over them in name order. Each facing mode has its own directory.
type DirCamera struct {
	dirs  map[reader.FacingMode]string
	torch *Torch

	mu     sync.Mutex
	files  []string
	next   int
	width  int
	height int
	track  *track
}

// NewDirCamera creates a camera reading environment and user frames from
// the given directories. torch may be nil.
func NewDirCamera(environmentDir, userDir string, torch *Torch) *DirCamera {
	return &DirCamera{
		dirs: map[reader.FacingMode]string{
			reader.Environment: environmentDir,
			reader.User:        userDir,
		},
		torch: torch,
	}
}

func (c *DirCamera) Open(sc reader.StreamConstraints) error {
	mode := sc.FacingMode
	if mode == "" {
		mode = reader.Environment
	}
	dir := c.dirs[mode]
	if dir == "" {
		return fmt.Errorf("no camera for facing mode %q", mode)
	}
	files, err := listImages(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images in %s", dir)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = files
	c.next = 0
	c.width, c.height = sc.Width, sc.Height
	c.track = newTrack(c.torch)
	debug.Verbose("Camera: %s opened (%d frames, %dx%d)", dir, len(files), sc.Width, sc.Height)
	return nil
}

func (c *DirCamera) Frame() (image.Image, error) {
	c.mu.Lock()
	if c.track == nil {
		c.mu.Unlock()
		return nil, ErrNotOpen
	}
	path := c.files[c.next]
	c.next = (c.next + 1) % len(c.files)
	w, h, t := c.width, c.height, c.track
	c.mu.Unlock()

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load frame %s: %w", path, err)
	}
	return shape(img, w, h, t.zoomLevel()), nil
}

func (c *DirCamera) Track() engine.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.track == nil {
		return nil
	}
	return c.track
}

func (c *DirCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.track == nil {
		return nil
	}
	c.track = nil
	c.files = nil
	if c.torch != nil {
		return c.torch.Set(false)
	}
	return nil
}

// shape fits img within w x h (when set) and applies the digital zoom.
func shape(img image.Image, w, h int, zoom float64) image.Image {
	if w > 0 && h > 0 {
		img = imaging.Fit(img, w, h, imaging.Linear)
	}
	return applyZoom(img, zoom)
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read camera directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
