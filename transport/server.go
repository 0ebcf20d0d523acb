package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/graphkv/graphd/internal/log"
	"github.com/graphkv/graphd/internal/xmetrics"
)

// Handler is one RPC processor: decode a request, do work, return a
// response or an error. req/resp are concrete *wire.XRequest/Response
// pointers; HandlerFunc erases the type so Mux can hold them uniformly.
type HandlerFunc func(ctx context.Context, body []byte) (resp any, err error)

// Mux is graphd's RPC server: one path per RPC name (AddVertices,
// GetNeighbors, ...), mirroring server.go's per-endpoint handler
// registration but without gorilla/mux, since no router library is
// part of this module's dependency set — Go 1.22+ ServeMux pattern
// matching covers the "one path, one method" shape this RPC surface
// needs.
type Mux struct {
	mux     *http.ServeMux
	metrics *xmetrics.Registry
	logger  log.Logger
}

// NewMux creates an empty Mux. metrics may be nil to skip instrumentation.
func NewMux(metrics *xmetrics.Registry, logger log.Logger) *Mux {
	if logger == nil {
		logger = log.Global()
	}
	return &Mux{mux: http.NewServeMux(), metrics: metrics, logger: logger}
}

// Handle registers an RPC processor under name (e.g. "AddVertices").
// Every RPC is a POST, matching Client.Call.
func (m *Mux) Handle(name string, h HandlerFunc) {
	var pm *xmetrics.ProcessorMetrics
	if m.metrics != nil {
		pm = m.metrics.NewProcessorMetrics(name)
	}
	m.mux.HandleFunc("POST /"+name, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", err.Error())
			return
		}
		resp, err := h(r.Context(), body)
		ok := err == nil
		if pm != nil {
			pm.Call(time.Since(start).Seconds(), ok)
		}
		if err != nil {
			m.logger.WithField("rpc", name).Warnf("transport: handler error: %v", err)
			writeError(w, http.StatusInternalServerError, "E_INTERNAL", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// ServeHTTP implements http.Handler.
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) { m.mux.ServeHTTP(w, r) }

// HandleTyped registers a strongly-typed processor: fn receives a
// decoded *Req and returns a *Resp, letting storagesvc processors work
// directly in terms of wire.XRequest/wire.XResponse rather than raw
// bytes.
func HandleTyped[Req, Resp any](m *Mux, name string, fn func(ctx context.Context, req *Req) (*Resp, error)) {
	m.Handle(name, func(ctx context.Context, body []byte) (any, error) {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, err
			}
		}
		return fn(ctx, &req)
	})
}

// writeJSON mirrors server/writer.JSON's "set Content-Type, marshal,
// write status" shape.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError mirrors server/writer.ErrorString.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Code: code, Message: message})
}
