package engine

import (
	"sort"
	"sync"

	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/logic/geometry"
	"github.com/cjeanneret/ScanGo/internal/logic/reader"
)

// DrawOp is one recorded overlay operation.
type DrawOp struct {
	Op    string        `json:"op"` // "clear" or "path"
	Path  geometry.Path `json:"path,omitempty"`
	Style Style         `json:"style,omitempty"`
}

// RecordingCanvas is an in-memory Canvas. It keeps the operations drawn
// since the last Clear.
type RecordingCanvas struct {
	mu     sync.Mutex
	ops    []DrawOp
	clears int
}

func (c *RecordingCanvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	c.ops = []DrawOp{{Op: "clear"}}
}

func (c *RecordingCanvas) DrawPath(path geometry.Path, style Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, DrawOp{Op: "path", Path: path, Style: style})
}

// Ops returns a copy of the operations since the last Clear.
func (c *RecordingCanvas) Ops() []DrawOp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DrawOp(nil), c.ops...)
}

// Clears returns how many times the canvas was cleared.
func (c *RecordingCanvas) Clears() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears
}

// Mock is a scripted Engine. Nothing happens on its own: the caller
// completes initialization, emits frames and decode results explicitly.
// Used for development without a camera and in tests.
type Mock struct {
	mu sync.Mutex

	Canvas *RecordingCanvas
	Track  Track // returned by ActiveTrack while started

	inits   []reader.EngineConfiguration
	initCb  func(error)
	started bool
	starts  int
	stops   int

	decodes  []reader.EngineConfiguration
	decodeCb []ResultFunc

	nextID    int
	detected  map[int]ResultFunc
	processed map[int]ResultFunc
}

// NewMock creates a mock engine with a recording overlay.
func NewMock() *Mock {
	return &Mock{
		Canvas:    &RecordingCanvas{},
		detected:  make(map[int]ResultFunc),
		processed: make(map[int]ResultFunc),
	}
}

func (m *Mock) Init(cfg reader.EngineConfiguration, done func(error)) {
	debug.Trace("mock engine: init readers=%v", cfg.Decoder.Readers)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits = append(m.inits, cfg)
	m.initCb = done
}

func (m *Mock) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	m.starts++
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	m.stops++
}

func (m *Mock) DecodeSingle(cfg reader.EngineConfiguration, done ResultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decodes = append(m.decodes, cfg)
	m.decodeCb = append(m.decodeCb, done)
}

func (m *Mock) OnDetected(fn ResultFunc) func() {
	return m.subscribe(m.detected, fn)
}

func (m *Mock) OnProcessed(fn ResultFunc) func() {
	return m.subscribe(m.processed, fn)
}

func (m *Mock) subscribe(set map[int]ResultFunc, fn ResultFunc) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	set[id] = fn
	return func() {
		m.mu.Lock()
		delete(set, id)
		m.mu.Unlock()
	}
}

func (m *Mock) ActiveTrack() Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	return m.Track
}

func (m *Mock) Overlay() Canvas {
	if m.Canvas == nil {
		return nil
	}
	return m.Canvas
}

// --- scripting ---

// CompleteInit delivers the pending init callback. It reports false if no
// init is pending.
func (m *Mock) CompleteInit(err error) bool {
	m.mu.Lock()
	cb := m.initCb
	m.initCb = nil
	m.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(err)
	return true
}

// EmitFrame delivers r to processed subscribers, then to detected
// subscribers when it carries a code. The live engine does the same for
// every frame.
func (m *Mock) EmitFrame(r *Result) {
	for _, fn := range m.snapshot(m.processed) {
		fn(r)
	}
	if r.HasCode() {
		m.EmitDetected(r)
	}
}

// EmitDetected delivers r to detected subscribers only.
func (m *Mock) EmitDetected(r *Result) {
	for _, fn := range m.snapshot(m.detected) {
		fn(r)
	}
}

// CompleteDecode delivers r to the oldest pending DecodeSingle callback.
func (m *Mock) CompleteDecode(r *Result) bool {
	m.mu.Lock()
	if len(m.decodeCb) == 0 {
		m.mu.Unlock()
		return false
	}
	cb := m.decodeCb[0]
	m.decodeCb = m.decodeCb[1:]
	m.mu.Unlock()
	cb(r)
	return true
}

func (m *Mock) snapshot(set map[int]ResultFunc) []ResultFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids) // subscription order
	fns := make([]ResultFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, set[id])
	}
	return fns
}

// --- inspection ---

// Inits returns every configuration passed to Init.
func (m *Mock) Inits() []reader.EngineConfiguration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]reader.EngineConfiguration(nil), m.inits...)
}

// Decodes returns every configuration passed to DecodeSingle.
func (m *Mock) Decodes() []reader.EngineConfiguration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]reader.EngineConfiguration(nil), m.decodes...)
}

// Starts returns how many times Start was called.
func (m *Mock) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Stops returns how many times Stop was called.
func (m *Mock) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// Subscribers returns the number of detected and processed subscribers.
func (m *Mock) Subscribers() (detected, processed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.detected), len(m.processed)
}
