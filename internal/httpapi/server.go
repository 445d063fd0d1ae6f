package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"scriptd/internal/convert"
	"scriptd/internal/manager"
	"scriptd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModules() ([]types.Module, error)
	Status() types.StatusResponse
	Invoke(ctx context.Context, req types.InvokeRequest) (types.InvokeResponse, error)
	Ready() bool
}

// InvocationStore serves the invocation journal. It is optional.
type InvocationStore interface {
	List(ctx context.Context, module string, limit, offset int) ([]types.InvocationRecord, int, error)
	Get(ctx context.Context, id string) (types.InvocationRecord, error)
}

const maxListLimit = 500

// NewMux builds the router. inv may be nil, in which case the invocation
// endpoints answer 404.
func NewMux(svc Service, inv InvocationStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}

	h := &handlers{svc: svc, inv: inv}
	r.Get("/modules", h.listModules)
	r.Get("/status", h.status)
	r.Post("/invoke", h.invoke)
	if inv != nil {
		r.Get("/invocations", h.listInvocations)
		r.Get("/invocations/{id}", h.getInvocation)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

func corsOptions() cors.Options {
	methods := corsAllowedMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "OPTIONS"}
	}
	headers := corsAllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "X-Request-Id", "X-Log-Level"}
	}
	return cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
}

type handlers struct {
	svc Service
	inv InvocationStore
}

// listModules godoc
// @Summary      List modules
// @Description  Modules found in the modules directory for the active engine.
// @Tags         modules
// @Produce      json
// @Success      200  {object}  types.ModulesResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /modules [get]
func (h *handlers) listModules(w http.ResponseWriter, r *http.Request) {
	mods, err := h.svc.ListModules()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, types.ModulesResponse{Modules: mods})
}

// status godoc
// @Summary      Runtime status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Status())
}

// invoke godoc
// @Summary      Invoke an entry point
// @Description  Calls module.entry with the given arguments, either on the request goroutine or on the worker pool.
// @Tags         invoke
// @Accept       json
// @Produce      json
// @Param        request  body      types.InvokeRequest  true  "Invocation"
// @Success      200      {object}  types.InvokeResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /invoke [post]
func (h *handlers) invoke(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.InvokeRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Module = strings.TrimSpace(req.Module)
	if req.Module == "" {
		writeJSONError(w, http.StatusBadRequest, "module is required")
		return
	}
	for i := range req.Args {
		req.Args[i] = convert.Normalize(req.Args[i])
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	if lvl >= LevelDebug {
		reqLog(r, zlog.Debug()).Str("module", req.Module).Str("entry", req.Entry).
			Bool("async", req.Async).Interface("args", req.Args).Msg("invoke start")
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if invokeTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, time.Duration(invokeTimeout)*time.Second)
		defer tcancel()
	}
	resp, err := h.svc.Invoke(ctx, req)
	if err != nil {
		// Client went away; nothing to answer.
		if r.Context().Err() != nil {
			return
		}
		status := statusFor(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("queue")
		}
		if lvl >= LevelError {
			reqLog(r, zlog.Warn()).Str("module", req.Module).Int("status", status).
				Dur("dur", time.Since(start)).Err(err).Msg("invoke end")
		}
		writeJSONError(w, status, err.Error())
		return
	}
	if lvl >= LevelInfo {
		reqLog(r, zlog.Info()).Str("module", resp.Module).Str("entry", resp.Entry).
			Str("mode", resp.Mode).Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("invoke end")
	}
	writeJSON(w, resp)
}

// listInvocations godoc
// @Summary      Recent invocations
// @Tags         invocations
// @Produce      json
// @Param        module  query     string  false  "Filter by module"
// @Param        limit   query     int     false  "Page size (default 50, max 500)"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {object}  types.InvocationsResponse
// @Failure      400     {object}  types.ErrorResponse
// @Router       /invocations [get]
func (h *handlers) listInvocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 50)
	if err != nil || limit <= 0 || limit > maxListLimit {
		writeJSONError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeJSONError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	recs, total, err := h.inv.List(r.Context(), q.Get("module"), limit, offset)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, types.InvocationsResponse{Records: recs, Total: total})
}

// getInvocation godoc
// @Summary      One journal record
// @Tags         invocations
// @Produce      json
// @Param        id   path      string  true  "Record id"
// @Success      200  {object}  types.InvocationRecord
// @Failure      404  {object}  types.ErrorResponse
// @Router       /invocations/{id} [get]
func (h *handlers) getInvocation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.inv.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, rec)
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func reqLog(r *http.Request, e *zerolog.Event) *zerolog.Event {
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		e = e.Str("request_id", rid)
	}
	return e.Str("path", r.URL.Path)
}

var _ Service = (*manager.Service)(nil)
