package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server for the given address and scanner. The
// broadcaster and code state must be registered as scanner observers by
// the caller.
func NewServer(addr string, scanner Scanner, broadcaster *EventBroadcaster, codes *CodeState, overlay OverlaySource) *Server {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}

	return &Server{
		addr:     addr,
		handlers: NewHandlers(scanner, broadcaster, codes, overlay, subFS),
	}
}

// Router returns an http.Handler with all routes registered.
func (s *Server) Router() http.Handler {
	return NewRouter(s.handlers)
}

// NewRouter registers every route of h.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/live/start", h.HandleLiveStart).Methods(http.MethodPost)
	r.HandleFunc("/live/stop", h.HandleLiveStop).Methods(http.MethodPost)
	r.HandleFunc("/decode", h.HandleDecode).Methods(http.MethodPost)
	r.HandleFunc("/symbology", h.HandleSymbology).Methods(http.MethodPut)
	r.HandleFunc("/torch", h.HandleTorch).Methods(http.MethodPost)
	r.HandleFunc("/zoom", h.HandleZoom).Methods(http.MethodPost)
	r.HandleFunc("/config", h.HandleConfig).Methods(http.MethodGet)
	r.HandleFunc("/code", h.HandleCode).Methods(http.MethodGet)
	r.HandleFunc("/overlay", h.HandleOverlay).Methods(http.MethodGet)
	r.HandleFunc("/status/stream", h.HandleStatusStream).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.HandleWS).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))
	r.HandleFunc("/", h.ServeIndex).Methods(http.MethodGet)

	return r
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
