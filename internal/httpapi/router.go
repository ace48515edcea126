// Package httpapi mounts the relay's HTTP surface: the client shell page, the
// websocket endpoint and read-only views for dashboards.
package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/chess-relay/internal/relay"
	"github.com/park285/chess-relay/internal/render"
	"github.com/park285/chess-relay/internal/rules"
	"github.com/park285/chess-relay/internal/session"
)

//go:embed static/index.html
var indexHTML []byte

// Snapshotter is the read side of relay.Hub.
type Snapshotter interface {
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, pos rules.Position, opts render.Options) ([]byte, error)
}

type Deps struct {
	Hub      Snapshotter
	Socket   http.Handler
	Renderer BoardRenderer
	Log      *zap.Logger
}

func NewRouter(d Deps) *chi.Mux {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	h := &handlers{hub: d.Hub, renderer: d.Renderer, log: d.Log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	// 웹소켓은 요청 로거 밖에 둔다 (연결 내내 열려 있음)
	if d.Socket != nil {
		r.Handle("/ws", d.Socket)
	}

	r.Group(func(r chi.Router) {
		r.Use(requestLogger(d.Log))
		r.Get("/", h.index)
		r.Get("/healthz", h.health)
		r.Get("/api/state", h.state)
		r.Get("/board.png", h.board)
	})
	return r
}

type handlers struct {
	hub      Snapshotter
	renderer BoardRenderer
	log      *zap.Logger
}

func (h *handlers) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": time.Now().UTC()})
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, relay.ToWireSnapshot(snap))
}

func (h *handlers) board(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, http.StatusNotFound, "board rendering disabled")
		return
	}
	var opts render.Options
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("orientation"))) {
	case "", "white":
		opts.Orientation = rules.White
	case "black":
		opts.Orientation = rules.Black
	default:
		writeError(w, http.StatusBadRequest, "orientation must be white or black")
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	if n := len(snap.Log); n > 0 {
		opts.LastFrom, opts.LastTo = snap.Log[n-1].From, snap.Log[n-1].To
	}
	png, err := h.renderer.RenderPNG(r.Context(), snap.Position, opts)
	if err != nil {
		h.log.Error("http_board_render_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (h *handlers) snapshot(w http.ResponseWriter, r *http.Request) (session.Snapshot, bool) {
	// 허브 루프가 멈춰 있어도 요청은 2초 안에 끝난다
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	snap, err := h.hub.Snapshot(ctx)
	if err != nil {
		h.log.Warn("http_snapshot_unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "relay unavailable")
		return session.Snapshot{}, false
	}
	return snap, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			log.Info("http_request",
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}
