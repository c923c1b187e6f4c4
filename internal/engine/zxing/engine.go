// Package zxing is the software decoding engine: it pulls frames from a
// camera.Camera at the configured frequency and decodes them with gozxing.
package zxing

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/engine"
	"github.com/cjeanneret/ScanGo/internal/hw/camera"
	"github.com/cjeanneret/ScanGo/internal/logic/reader"
)

// Engine implements engine.Engine on top of a camera.
type Engine struct {
	cam    camera.Camera
	canvas *engine.RecordingCanvas

	// cbMu serializes every callback delivered to subscribers.
	cbMu sync.Mutex
	// camMu serializes camera opening between concurrent Init calls.
	camMu sync.Mutex

	mu        sync.Mutex
	gen       uint64 // bumped by Init and Stop; a pending Init of an older generation is dropped
	cfg       reader.EngineConfiguration
	dec       *decoder
	open      bool
	stop      chan struct{} // closed to end the frame loop
	nextID    int
	detected  map[int]engine.ResultFunc
	processed map[int]engine.ResultFunc
}

var _ engine.Engine = (*Engine)(nil)

// New creates an engine reading frames from cam.
func New(cam camera.Camera) *Engine {
	return &Engine{
		cam:       cam,
		canvas:    &engine.RecordingCanvas{},
		detected:  make(map[int]engine.ResultFunc),
		processed: make(map[int]engine.ResultFunc),
	}
}

// Canvas returns the overlay the session draws into.
func (e *Engine) Canvas() *engine.RecordingCanvas { return e.canvas }

func (e *Engine) Overlay() engine.Canvas { return e.canvas }

// Init builds the decoder and opens the camera on a goroutine. done is
// called once with the outcome, unless Stop or another Init came first.
func (e *Engine) Init(cfg reader.EngineConfiguration, done func(error)) {
	e.mu.Lock()
	e.haltLocked()
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	go func() {
		if ok, err := e.prepare(gen, cfg); ok {
			e.deliver(func() { done(err) })
		}
	}()
}

// prepare builds the decoder and opens the camera for generation gen. It
// reports false when gen went stale, in which case nothing stays open.
func (e *Engine) prepare(gen uint64, cfg reader.EngineConfiguration) (bool, error) {
	e.camMu.Lock()
	defer e.camMu.Unlock()
	if !e.isGen(gen) {
		debug.Trace("zxing: dropping stale init")
		return false, nil
	}

	dec, err := newDecoder(cfg.Reader())
	if err == nil {
		err = e.openCamera(cfg)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		if err == nil {
			_ = e.cam.Close()
		}
		debug.Trace("zxing: dropping stale init")
		return false, nil
	}
	if err == nil {
		e.cfg, e.dec, e.open = cfg, dec, true
	}
	return true, err
}

func (e *Engine) isGen(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}

func (e *Engine) openCamera(cfg reader.EngineConfiguration) error {
	sc := cfg.InputStream.Constraints
	if sc == nil {
		return errors.New("no stream constraints")
	}
	if err := e.cam.Open(*sc); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	return nil
}

// Start runs the frame loop. It is a no-op until Init succeeded, and when
// the loop already runs.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open || e.stop != nil {
		return
	}
	e.stop = make(chan struct{})
	go e.loop(e.stop, e.cfg, e.dec)
}

// Stop ends the frame loop and closes the camera. It does not wait for the
// loop goroutine, so it is safe to call from a callback.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.haltLocked()
}

func (e *Engine) haltLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	if e.open {
		e.open = false
		e.dec = nil
		if err := e.cam.Close(); err != nil {
			debug.Error(fmt.Errorf("close camera: %w", err))
		}
	}
}

func (e *Engine) loop(stop <-chan struct{}, cfg reader.EngineConfiguration, dec *decoder) {
	freq := cfg.Frequency
	if freq <= 0 {
		freq = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(freq))
	defer ticker.Stop()
	debug.Verbose("zxing: frame loop at %d fps", freq)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		frame, err := e.cam.Frame()
		if errors.Is(err, camera.ErrNotOpen) {
			return
		}
		if err != nil {
			debug.Verbose("zxing: frame error: %v", err)
			continue
		}
		r := dec.decode(frame, cfg.Locator.HalfSample, false)

		e.deliver(func() {
			select {
			case <-stop:
				return
			default:
			}
			for _, fn := range e.snapshot(e.processed) {
				fn(r)
			}
			if r.HasCode() {
				for _, fn := range e.snapshot(e.detected) {
					fn(r)
				}
			}
		})
	}
}

// DecodeSingle decodes cfg.Src on a goroutine. Load and decoder errors are
// logged and reported as a result without code.
func (e *Engine) DecodeSingle(cfg reader.EngineConfiguration, done engine.ResultFunc) {
	go func() {
		r := decodeFile(cfg)
		e.deliver(func() { done(r) })
	}()
}

func decodeFile(cfg reader.EngineConfiguration) *engine.Result {
	dec, err := newDecoder(cfg.Reader())
	if err != nil {
		debug.Error(err)
		return &engine.Result{}
	}
	img, err := imaging.Open(cfg.Src, imaging.AutoOrientation(true))
	if err != nil {
		debug.Error(fmt.Errorf("load image: %w", err))
		return &engine.Result{}
	}
	return dec.decode(img, cfg.Locator.HalfSample, true)
}

func (e *Engine) ActiveTrack() engine.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return nil
	}
	return e.cam.Track()
}

func (e *Engine) OnDetected(fn engine.ResultFunc) func() {
	return e.subscribe(e.detected, fn)
}

func (e *Engine) OnProcessed(fn engine.ResultFunc) func() {
	return e.subscribe(e.processed, fn)
}

func (e *Engine) subscribe(set map[int]engine.ResultFunc, fn engine.ResultFunc) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	set[id] = fn
	return func() {
		e.mu.Lock()
		delete(set, id)
		e.mu.Unlock()
	}
}

// snapshot returns the handlers of set in subscription order.
func (e *Engine) snapshot(set map[int]engine.ResultFunc) []engine.ResultFunc {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]engine.ResultFunc, len(ids))
	for i, id := range ids {
		fns[i] = set[id]
	}
	return fns
}

func (e *Engine) deliver(fn func()) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	fn()
}
