// Package control is the local HTTP surface of the host: it forwards
// navigation and menu commands to the bus and serves the frame status and
// the visit history.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/ghframe/bus"
	"github.com/hazyhaar/ghframe/frame"
	"github.com/hazyhaar/ghframe/history"
	"github.com/hazyhaar/ghframe/kit"
)

// History is the read side of the history store.
type History interface {
	Get(ctx context.Context) ([]*history.Record, error)
	GetByID(ctx context.Context, id string) (*history.Record, error)
	Find(ctx context.Context, text string) ([]*history.Record, error)
}

// StatusFunc reports the frame controller status.
type StatusFunc func() frame.Status

// Config wires the control server.
type Config struct {
	Bus     bus.Publisher
	Status  StatusFunc
	History History
	Logger  *slog.Logger
}

// Server handles the control API.
type Server struct {
	cfg    Config
	log    *slog.Logger
	router chi.Router
}

var errBadRequest = errors.New("bad request")

const endpointTimeout = 30 * time.Second

// New builds the router.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{cfg: cfg, log: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range s.stack() {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/frame/goto", s.handle("goto", decodeGoto, s.gotoEndpoint))
		r.Post("/menu/{command}", s.handle("menu", decodeMenu, s.menuEndpoint))
		r.Get("/state", s.handle("state", decodeNone, s.stateEndpoint))

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handle("history.list", decodeNone, s.listEndpoint))
			r.Get("/search", s.handle("history.find", decodeSearch, s.findEndpoint))
			r.Get("/{id}", s.handle("history.get", decodeID, s.getEndpoint))
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("control: listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("control: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("control: shutdown: %w", err)
	}
	<-errCh
	return nil
}

type decodeFunc func(*http.Request) (any, error)

// handle adapts a decoder and an endpoint into an http.HandlerFunc.
// Decode failures answer 400, a nil response 404, other errors 500.
func (s *Server) handle(name string, decode decodeFunc, endpoint kit.Endpoint) http.HandlerFunc {
	endpoint = kit.Chain(
		kit.Logging(s.log, "control."+name),
		kit.Timeout(endpointTimeout),
	)(endpoint)
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decode(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := endpoint(r.Context(), req)
		switch {
		case errors.Is(err, errBadRequest):
			writeError(w, http.StatusBadRequest, err)
		case err != nil:
			requestLogger(r.Context(), s.log).Error("control: request failed", "endpoint", name, "error", err)
			writeError(w, http.StatusInternalServerError, err)
		case isNil(resp):
			writeError(w, http.StatusNotFound, errors.New("not found"))
		default:
			writeJSON(w, http.StatusOK, resp)
		}
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	r, ok := v.(*history.Record)
	return ok && r == nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
