package exec

import (
	"context"

	"github.com/graphkv/graphd/transport"
	"github.com/graphkv/graphd/wire"
)

// RPCClient adapts a transport.Client to StorageClient, for an
// Executor running in the graph-service tier against a remote storage
// host rather than an in-process storagesvc.Service (§1: transport is
// opaque, only message shapes matter — an Executor never needs to know
// which case it's in).
type RPCClient struct {
	c *transport.Client
}

// NewRPCClient wraps c.
func NewRPCClient(c *transport.Client) *RPCClient { return &RPCClient{c: c} }

func (r *RPCClient) GetNeighbors(ctx context.Context, req *wire.GetNeighborsRequest) (*wire.GetNeighborsResponse, error) {
	var resp wire.GetNeighborsResponse
	if err := r.c.Call(ctx, "GetNeighbors", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *RPCClient) GetProp(ctx context.Context, req *wire.GetPropRequest) (*wire.GetPropResponse, error) {
	var resp wire.GetPropResponse
	if err := r.c.Call(ctx, "GetProp", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *RPCClient) Scan(ctx context.Context, req *wire.ScanRequest) (*wire.ScanResponse, error) {
	var resp wire.ScanResponse
	if err := r.c.Call(ctx, "Scan", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
