package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/engine"
	"github.com/cjeanneret/ScanGo/internal/hw/camera"
	"github.com/cjeanneret/ScanGo/internal/logic/reader"
)

const (
	maxJSONBytes   = 1 << 20
	maxUploadBytes = 16 << 20
)

// Scanner is the detection session driven by the web interface.
type Scanner interface {
	StartLive()
	StopLive()
	Running() bool
	RunID() string
	Decode(src string, done func(code, format string))
	SetSymbology(name string) error
	SetTorch(enabled bool) error
	SetZoom(level float64) error
	Config() reader.ReaderConfiguration
	EngineConfig() reader.EngineConfiguration
}

// OverlaySource returns the overlay operations of the last analyzed frame.
type OverlaySource interface {
	Ops() []engine.DrawOp
}

// SymbologyRequest is the body of PUT /symbology.
type SymbologyRequest struct {
	BarcodeType string `json:"barcode_type"`
}

// TorchRequest is the body of POST /torch.
type TorchRequest struct {
	Enabled bool `json:"enabled"`
}

// ZoomRequest is the body of POST /zoom.
type ZoomRequest struct {
	Level float64 `json:"level"`
}

// CodeResponse is returned by GET /code and POST /decode.
type CodeResponse struct {
	Code   string `json:"code"`
	Format string `json:"format,omitempty"`
}

// ConfigResponse is returned by GET /config.
type ConfigResponse struct {
	Reader      reader.ReaderConfiguration `json:"reader"`
	Engine      reader.EngineConfiguration `json:"engine"`
	BarcodeType string                     `json:"barcode_type"`
	Running     bool                       `json:"running"`
	RunID       string                     `json:"run_id,omitempty"`
	Symbologies []string                   `json:"symbologies"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Scanner       Scanner
	Broadcaster   *EventBroadcaster
	Codes         *CodeState
	Overlay       OverlaySource // nil when the engine has no overlay
	DecodeTimeout time.Duration
	staticFS      fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(scanner Scanner, broadcaster *EventBroadcaster, codes *CodeState, overlay OverlaySource, staticFS fs.FS) *Handlers {
	return &Handlers{
		Scanner:       scanner,
		Broadcaster:   broadcaster,
		Codes:         codes,
		Overlay:       overlay,
		DecodeTimeout: 10 * time.Second,
		staticFS:      staticFS,
	}
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleConfig returns the current reader and engine configuration as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.Scanner.Config()
	writeJSON(w, http.StatusOK, ConfigResponse{
		Reader:      cfg,
		Engine:      h.Scanner.EngineConfig(),
		BarcodeType: cfg.Decoder.Key(),
		Running:     h.Scanner.Running(),
		RunID:       h.Scanner.RunID(),
		Symbologies: reader.SymbologyNames(),
	})
}

// HandleLiveStart handles POST /live/start.
func (h *Handlers) HandleLiveStart(w http.ResponseWriter, r *http.Request) {
	h.Scanner.StartLive()
	h.Broadcaster.BroadcastMsg("Live detection started")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "run_id": h.Scanner.RunID()})
}

// HandleLiveStop handles POST /live/stop.
func (h *Handlers) HandleLiveStop(w http.ResponseWriter, r *http.Request) {
	h.Scanner.StopLive()
	h.Broadcaster.BroadcastMsg("Live detection stopped")
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// HandleSymbology handles PUT /symbology.
func (h *Handlers) HandleSymbology(w http.ResponseWriter, r *http.Request) {
	var req SymbologyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Scanner.SetSymbology(req.BarcodeType); err != nil {
		var invalid *reader.InvalidSymbologyError
		if errors.As(err, &invalid) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": invalid.Error(), "valid": invalid.Valid})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cfg := h.Scanner.Config()
	h.Broadcaster.BroadcastMsg(fmt.Sprintf("Decoder set to %s", cfg.Decoder))
	writeJSON(w, http.StatusOK, map[string]string{"decoder": string(cfg.Decoder)})
}

// HandleTorch handles POST /torch.
func (h *Handlers) HandleTorch(w http.ResponseWriter, r *http.Request) {
	var req TorchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Scanner.SetTorch(req.Enabled); err != nil {
		capabilityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// HandleZoom handles POST /zoom.
func (h *Handlers) HandleZoom(w http.ResponseWriter, r *http.Request) {
	var req ZoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if math.IsNaN(req.Level) || math.IsInf(req.Level, 0) || req.Level <= 0 {
		http.Error(w, "level must be a positive number", http.StatusBadRequest)
		return
	}
	if err := h.Scanner.SetZoom(req.Level); err != nil {
		capabilityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func capabilityError(w http.ResponseWriter, err error) {
	if errors.Is(err, camera.ErrTorchUnsupported) {
		http.Error(w, err.Error(), http.StatusNotImplemented)
		return
	}
	http.Error(w, err.Error(), http.StatusUnprocessableEntity)
}

// HandleCode returns the last published code.
func (h *Handlers) HandleCode(w http.ResponseWriter, r *http.Request) {
	code, format := h.Codes.Code()
	writeJSON(w, http.StatusOK, CodeResponse{Code: code, Format: format})
}

// HandleOverlay returns the overlay operations of the last analyzed frame.
func (h *Handlers) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	ops := []engine.DrawOp{}
	if h.Overlay != nil {
		ops = append(ops, h.Overlay.Ops()...)
	}
	writeJSON(w, http.StatusOK, ops)
}

// HandleDecode handles POST /decode: a multipart upload with the image in
// the "image" field. It blocks until the decode finished.
func (h *Handlers) HandleDecode(w http.ResponseWriter, r *http.Request) {
	if h.Scanner.Running() {
		http.Error(w, "live detection in progress", http.StatusConflict)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "missing image upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	path, err := saveUpload(file, filepath.Ext(header.Filename))
	if err != nil {
		debug.Error(err)
		http.Error(w, "could not store upload", http.StatusInternalServerError)
		return
	}

	// The upload is removed once its own outcome arrived, which may be
	// after this request gave up waiting.
	done := make(chan CodeResponse, 1)
	h.Scanner.Decode(path, func(code, format string) {
		if err := os.Remove(path); err != nil {
			debug.Verbose("remove upload %s: %v", path, err)
		}
		resp := CodeResponse{Code: code, Format: format}
		if code == "" {
			resp = CodeResponse{Code: NotFound}
		}
		select {
		case done <- resp:
		default:
		}
	})

	select {
	case resp := <-done:
		writeJSON(w, http.StatusOK, resp)
	case <-time.After(h.DecodeTimeout):
		http.Error(w, "decode timed out", http.StatusGatewayTimeout)
	case <-r.Context().Done():
	}
}

func saveUpload(src io.Reader, ext string) (string, error) {
	f, err := os.CreateTemp("", "scango-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return f.Name(), nil
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
