// Package httpapi exposes the converter controller over a small local HTTP
// API so that editors and scripts can start, stop and configure it.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"epubbridge/internal/lifecycle"
	"epubbridge/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *launcher.Launcher implements it.
type Service interface {
	Status() lifecycle.Snapshot
	Start(ctx context.Context) error
	Stop()
	Open(ctx context.Context, path, name string) (lifecycle.Project, error)
	Configure(ctx context.Context, path, name string) (lifecycle.Project, error)
}

// NewMux builds the control API router.
func NewMux(svc Service, cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if cfg.Logger != nil {
		r.Use(requestLogger(*cfg.Logger, parseLevel(cfg.LogLevel)))
	}
	if cfg.CORS.Enabled {
		r.Use(corsMiddleware(cfg.CORS))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc, cfg: cfg}
	r.Get("/status", h.status)
	r.Post("/start", h.start)
	r.Post("/stop", h.stop)
	r.Post("/open", h.open)
	r.Post("/project", h.project)
	if cfg.Events != nil {
		r.Get("/events", h.events)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		switch svc.Status().State {
		case lifecycle.StateRunning:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
		case lifecycle.StateStarting:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("starting"))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("stopped"))
		}
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

func corsMiddleware(c CORSConfig) func(http.Handler) http.Handler {
	origins := c.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := c.Methods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := c.Headers
	if len(headers) == 0 {
		headers = []string{"Content-Type", "X-Log-Level", "X-Request-Id"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		MaxAge:         300,
	})
}

type handlers struct {
	svc Service
	cfg Config
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse(h.svc.Status()))
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	recs := h.cfg.Events.Recent()
	resp := types.EventsResponse{Events: make([]types.EventRecord, 0, len(recs))}
	for _, rec := range recs {
		resp.Events = append(resp.Events, types.EventRecord{
			Name:   rec.Name,
			PID:    rec.PID,
			AtUnix: rec.At.Unix(),
			Fields: rec.Fields,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handlerContext(h.cfg.baseContext(), r, h.cfg.StartTimeout)
	defer cancel()
	if err := h.svc.Start(ctx); err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(h.svc.Status()))
}

func (h *handlers) stop(w http.ResponseWriter, r *http.Request) {
	h.svc.Stop()
	writeJSON(w, http.StatusOK, statusResponse(h.svc.Status()))
}

func (h *handlers) open(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProject(w, r)
	if !ok {
		return
	}
	ctx, cancel := handlerContext(h.cfg.baseContext(), r, h.cfg.StartTimeout)
	defer cancel()
	p, err := h.svc.Open(ctx, req.Path, req.Name)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.ProjectResponse{Path: p.Path, Name: p.Name, URL: h.svc.Status().BaseURL})
}

func (h *handlers) project(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProject(w, r)
	if !ok {
		return
	}
	ctx, cancel := handlerContext(h.cfg.baseContext(), r, 0)
	defer cancel()
	p, err := h.svc.Configure(ctx, req.Path, req.Name)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.ProjectResponse{Path: p.Path, Name: p.Name, URL: h.svc.Status().BaseURL})
}

// decodeProject reads a ProjectRequest body and writes the error response
// itself when the body is unusable.
func (h *handlers) decodeProject(w http.ResponseWriter, r *http.Request) (types.ProjectRequest, bool) {
	var req types.ProjectRequest
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.maxBodyBytes())
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if strings.TrimSpace(req.Path) == "" {
		writeJSONError(w, http.StatusBadRequest, "path is required")
		return req, false
	}
	return req, true
}

func statusResponse(s lifecycle.Snapshot) types.StatusResponse {
	resp := types.StatusResponse{
		State:          string(s.State),
		Running:        s.State == lifecycle.StateRunning,
		PID:            s.PID,
		BaseURL:        s.BaseURL,
		LastExit:       s.LastExit,
		ServerTimeUnix: time.Now().Unix(),
	}
	if !s.StartedAt.IsZero() {
		resp.StartedUnix = s.StartedAt.Unix()
	}
	return resp
}
