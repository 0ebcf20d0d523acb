package transport

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphkv/graphd/internal/log"
)

type echoRequest struct {
	Msg string `json:"msg"`
}

type echoResponse struct {
	Msg string `json:"msg"`
}

func TestClientCallRoundTrip(t *testing.T) {
	mux := NewMux(nil, log.Global())
	HandleTyped(mux, "Echo", func(ctx context.Context, req *echoRequest) (*echoResponse, error) {
		return &echoResponse{Msg: "echo:" + req.Msg}, nil
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(ClientConfig{Addr: strings.TrimPrefix(srv.URL, "http://")}, log.Global())

	var resp echoResponse
	if err := client.Call(context.Background(), "Echo", echoRequest{Msg: "hi"}, &resp); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Msg != "echo:hi" {
		t.Fatalf("Msg = %q", resp.Msg)
	}
}

func TestClientCallSurfacesHandlerError(t *testing.T) {
	mux := NewMux(nil, log.Global())
	HandleTyped(mux, "Fail", func(ctx context.Context, req *echoRequest) (*echoResponse, error) {
		return nil, errors.New("boom")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(ClientConfig{Addr: strings.TrimPrefix(srv.URL, "http://")}, log.Global())

	var resp echoResponse
	err := client.Call(context.Background(), "Fail", echoRequest{Msg: "x"}, &resp)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("err = %v, want *RPCError", err)
	}
	if rpcErr.Code != "E_INTERNAL" {
		t.Fatalf("Code = %q", rpcErr.Code)
	}
}

func TestClientCallNetworkErrorOnBadAddr(t *testing.T) {
	client := NewClient(ClientConfig{Addr: "127.0.0.1:1"}, log.Global())
	var resp echoResponse
	err := client.Call(context.Background(), "Echo", echoRequest{Msg: "x"}, &resp)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
}
