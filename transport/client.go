// Package transport carries graphd's RPC surface (spec.md §6) over
// HTTP+JSON: every storage and meta RPC named in §6 is transport-opaque
// per §1 ("transport is opaque... only message shapes matter"), so this
// package owns the one decision the spec leaves open — JSON bodies over
// plain HTTP, modeled on plugins/rest's Client and server/server.go's
// http.Handler wiring, with no router/codegen library since neither is
// in scope for a graphd binary.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/graphkv/graphd/internal/log"
)

// ClientConfig mirrors plugins/rest.Config's shape, trimmed to what an
// intra-cluster RPC client needs: no credentials/TLS material, since
// graphd nodes are assumed to run inside a trusted cluster network.
type ClientConfig struct {
	Addr    string        // host:port of the target node
	Timeout time.Duration // per-call timeout; zero means no timeout
}

// Client is a minimal JSON-over-HTTP RPC client, one per target node.
type Client struct {
	cfg    ClientConfig
	hc     http.Client
	logger log.Logger
}

// NewClient builds a Client addressed at cfg.Addr.
func NewClient(cfg ClientConfig, logger log.Logger) *Client {
	if logger == nil {
		logger = log.Global()
	}
	return &Client{
		cfg:    cfg,
		hc:     http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Call issues one RPC: it POSTs req as a JSON body to path and decodes
// the JSON response body into resp. path is the RPC name, e.g.
// "AddVertices" or "GetNeighbors" — the server side maps these 1:1 onto
// handler functions (server.go).
func (c *Client) Call(ctx context.Context, path string, req, resp any) error {
	var body io.Reader
	if req != nil {
		buf, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("transport: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	url := "http://" + c.cfg.Addr + "/" + strings.TrimLeft(path, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.WithField("url", url).Debug("transport: sending RPC")

	httpResp, err := c.hc.Do(httpReq)
	if err != nil {
		return &NetworkError{Op: path, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		var envelope errorEnvelope
		decErr := json.NewDecoder(httpResp.Body).Decode(&envelope)
		if httpResp.StatusCode >= 500 && (decErr != nil || envelope.Code == "") {
			return &NetworkError{Op: path, Err: fmt.Errorf("server returned %s", httpResp.Status)}
		}
		return &RPCError{Op: path, Code: envelope.Code, Message: envelope.Message}
	}
	if resp == nil {
		return nil
	}
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	return nil
}

// NetworkError wraps a transport-level failure (§7's "rpc-failure,
// disconnected, timeout — transient network; caller may retry with
// backoff").
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// RPCError is a structured error the server returned for a failed call,
// carrying the wire.Code the handler reported.
type RPCError struct {
	Op      string
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("transport: %s: %s: %s", e.Op, e.Code, e.Message)
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
