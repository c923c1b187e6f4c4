// Package session coordinates barcode detection: it owns the live
// Idle/Running state machine against the decoding engine, de-duplicates
// consecutive identical codes, draws the debug overlay and fans outcomes
// out to the registered observers.
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/engine"
	"github.com/cjeanneret/ScanGo/internal/logic/capability"
	"github.com/cjeanneret/ScanGo/internal/logic/listener"
	"github.com/cjeanneret/ScanGo/internal/logic/reader"
)

// Lifecycle is the live state of a session.
type Lifecycle int

const (
	Idle Lifecycle = iota
	Running
)

func (l Lifecycle) String() string {
	if l == Running {
		return "running"
	}
	return "idle"
}

// Session drives one engine. Only one session should be created per
// engine, as the engine owns the camera.
type Session struct {
	engine    engine.Engine
	target    string
	observers *listener.Registry
	caps      capability.Controller
	onInitErr func(error)

	// ops serializes StartLive, StopLive and reconfiguration.
	ops sync.Mutex

	// mu guards the fields below; it is never held while calling the engine
	// for Init/DecodeSingle nor while notifying observers.
	mu        sync.Mutex
	cfg       reader.ReaderConfiguration
	engineCfg reader.EngineConfiguration
	lifecycle Lifecycle
	run       uint64 // incremented on every start; callbacks carry the run they belong to
	runID     string
	lastCode  string
	unsub     []func()
}

// Option configures a Session.
type Option func(*Session)

// WithCapabilities replaces the torch/zoom controller. By default the
// session controls the engine's active track.
func WithCapabilities(c capability.Controller) Option {
	return func(s *Session) { s.caps = c }
}

// WithRegistry shares an existing observer registry.
func WithRegistry(r *listener.Registry) Option {
	return func(s *Session) { s.observers = r }
}

// WithInitError sets a function called when the engine fails to initialize
// the current live run. The session is already Idle when it runs.
func WithInitError(fn func(error)) Option {
	return func(s *Session) { s.onInitErr = fn }
}

// New creates an idle session. target is the opaque render surface
// reference handed to the engine.
func New(e engine.Engine, target string, cfg reader.ReaderConfiguration, opts ...Option) *Session {
	s := &Session{
		engine:    e,
		target:    target,
		observers: listener.NewRegistry(),
		caps:      capability.NewTrackController(e),
		cfg:       cfg,
		engineCfg: reader.Translate(cfg, target),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configure translates cfg into the engine configuration this session
// would use. It has no side effects.
func (s *Session) Configure(cfg reader.ReaderConfiguration) reader.EngineConfiguration {
	return reader.Translate(cfg, s.target)
}

// Config returns the current reader configuration.
func (s *Session) Config() reader.ReaderConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// EngineConfig returns the current engine configuration.
func (s *Session) EngineConfig() reader.EngineConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engineCfg
}

// Lifecycle returns Idle or Running.
func (s *Session) Lifecycle() Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle
}

// Running reports whether a live run is active.
func (s *Session) Running() bool {
	return s.Lifecycle() == Running
}

// RunID returns the id of the current or last live run.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// LastCode returns the last code reported by the live run, or "".
func (s *Session) LastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCode
}

// Register adds an observer. See listener.Registry.
func (s *Session) Register(o listener.Observer) { s.observers.Register(o) }

// Unregister removes an observer. See listener.Registry.
func (s *Session) Unregister(o listener.Observer) { s.observers.Unregister(o) }

// SetTorch switches the camera torch, if the active camera supports it.
func (s *Session) SetTorch(enabled bool) error { return s.caps.SetTorch(enabled) }

// SetZoom sets the camera zoom, if the active camera supports it.
func (s *Session) SetZoom(level float64) error { return s.caps.SetZoom(level) }

// StartLive starts live detection. A running session is stopped first, so
// StartLive can be called repeatedly. Engine initialization completes
// asynchronously; an initialization failure is logged and leaves the
// session Idle.
func (s *Session) StartLive() {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.startLocked()
}

// StopLive halts live detection. It is a no-op when Idle. Callbacks the
// engine delivers after StopLive are ignored.
func (s *Session) StopLive() {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.stopLocked()
}

// SetSymbology switches the decoder. name is a host key ("Code_39") or a
// reader name ("code_39_reader"). An unknown name fails with
// *reader.InvalidSymbologyError before anything changes. A running session
// is stopped and restarted with the new decoder; observers are kept.
func (s *Session) SetSymbology(name string) error {
	sym, err := reader.ParseSymbology(name)
	if err != nil {
		return err
	}

	s.ops.Lock()
	defer s.ops.Unlock()
	s.replaceLocked(s.Config().WithDecoder(sym))
	return nil
}

// Reconfigure replaces the whole reader configuration, restarting the live
// run if one is active.
func (s *Session) Reconfigure(cfg reader.ReaderConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("reconfigure: %w", err)
	}

	s.ops.Lock()
	defer s.ops.Unlock()
	s.replaceLocked(cfg)
	return nil
}

// replaceLocked swaps the configuration, stopping and restarting a running
// session around it. Must be called with ops held.
func (s *Session) replaceLocked(cfg reader.ReaderConfiguration) {
	wasRunning := s.Running()
	if wasRunning {
		s.stopLocked()
	}

	s.mu.Lock()
	s.cfg = cfg
	s.engineCfg = reader.Translate(cfg, s.target)
	s.mu.Unlock()
	debug.Info("Decoder set to %s", cfg.Decoder)

	if wasRunning {
		s.startLocked()
	}
}

// DecodeImage decodes a single image. Observers get OnDetected when a code
// is found and OnNotDetected otherwise. It does not affect the live run.
func (s *Session) DecodeImage(src string) {
	s.Decode(src, nil)
}

// Decode is DecodeImage with a completion callback for this call only. done,
// if not nil, runs once after the observers were notified; code is empty
// when nothing was found.
func (s *Session) Decode(src string, done func(code, format string)) {
	cfg := reader.TranslateImage(s.EngineConfig(), src)
	debug.Verbose("Decoding single image %s with %v", src, cfg.Decoder.Readers)
	s.engine.DecodeSingle(cfg, func(r *engine.Result) {
		var code, format string
		if r.HasCode() {
			code, format = r.CodeResult.Code, r.CodeResult.Format
			debug.Code(code, format)
			s.observers.NotifyDetected(code, format)
		} else {
			debug.Info("No code found in %s", src)
			s.observers.NotifyNotDetected()
		}
		if done != nil {
			done(code, format)
		}
	})
}

// startLocked must be called with ops held.
func (s *Session) startLocked() {
	s.stopLocked()

	s.mu.Lock()
	s.run++
	run := s.run
	s.runID = uuid.NewString()
	s.lifecycle = Running
	s.lastCode = ""
	cfg := s.engineCfg
	runID := s.runID
	s.mu.Unlock()

	debug.Section("Starting live detection")
	debug.Value("Run", runID)
	debug.PrintStruct("Engine configuration", cfg)

	unsub := []func(){
		s.engine.OnDetected(func(r *engine.Result) { s.handleDetected(run, r) }),
		s.engine.OnProcessed(func(r *engine.Result) { s.handleProcessed(run, r) }),
	}
	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()

	s.engine.Init(cfg, func(err error) { s.handleInit(run, err) })
}

// stopLocked must be called with ops held.
func (s *Session) stopLocked() {
	s.mu.Lock()
	if s.lifecycle != Running {
		s.mu.Unlock()
		return
	}
	s.lifecycle = Idle
	unsub := s.unsub
	s.unsub = nil
	runID := s.runID
	s.mu.Unlock()

	s.engine.Stop()
	for _, fn := range unsub {
		fn()
	}
	debug.Info("Live detection stopped (run %s)", runID)
}

// current reports whether run is the active live run.
// Must be called with mu held.
func (s *Session) current(run uint64) bool {
	return s.lifecycle == Running && s.run == run
}

func (s *Session) handleInit(run uint64, err error) {
	s.mu.Lock()
	if !s.current(run) {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.lifecycle = Idle
		unsub := s.unsub
		s.unsub = nil
		s.mu.Unlock()

		debug.Error(fmt.Errorf("engine initialization failed: %w", err))
		for _, fn := range unsub {
			fn()
		}
		if s.onInitErr != nil {
			s.onInitErr(err)
		}
		return
	}
	// mu stays held across Start so a concurrent StopLive cannot slip in
	// between the check and the start.
	defer s.mu.Unlock()
	debug.Info("Engine initialization finished. Ready to start")
	s.engine.Start()
}

func (s *Session) handleDetected(run uint64, r *engine.Result) {
	if !r.HasCode() {
		return
	}
	code, format := r.CodeResult.Code, r.CodeResult.Format

	s.mu.Lock()
	if !s.current(run) {
		s.mu.Unlock()
		return
	}
	if code == s.lastCode {
		s.mu.Unlock()
		debug.Suppressed(code)
		return
	}
	s.lastCode = code
	s.mu.Unlock()

	debug.Code(code, format)
	s.observers.NotifyDetected(code, format)
}

func (s *Session) handleProcessed(run uint64, r *engine.Result) {
	s.mu.Lock()
	draw := s.current(run) && s.cfg.DrawDetectionIndicator
	s.mu.Unlock()
	if !draw || r == nil {
		return
	}
	canvas := s.engine.Overlay()
	if canvas == nil {
		return
	}
	drawResult(canvas, r)
}

// drawResult renders candidates, then the matched box above them, then the
// scan line when the frame carried a code.
func drawResult(c engine.Canvas, r *engine.Result) {
	c.Clear()
	for _, box := range r.Boxes {
		if box.Equal(r.Box) {
			continue
		}
		c.DrawPath(box, engine.CandidateStyle)
	}
	if len(r.Box) > 0 {
		c.DrawPath(r.Box, engine.MatchedStyle)
	}
	if r.HasCode() && len(r.Line) > 0 {
		c.DrawPath(r.Line, engine.ScanLineStyle)
	}
}
