// Package graphsvc is the graph-tier process role of spec.md §2: the
// process that owns planner.Builder/exec.Executor and fans GetNeighbors/
// GetProp/Scan calls out to whichever storage host the metadata catalog
// currently assigns each partition to. Unlike the storage and meta
// tiers, spec.md §6's RPC surface lists no query-ingestion RPC for this
// role — the AST parser that would drive one is an explicit out-of-scope
// collaborator (§1) — so graphsvc has no RPC handlers of its own; it is
// a library other code (an embedder, or the query tests) calls directly,
// the same way internal/planner/planner.go is a library OPA's own rego
// package calls rather than a thing with its own wire protocol.
package graphsvc

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/graphkv/graphd/internal/log"
	"github.com/graphkv/graphd/meta/catalog"
	"github.com/graphkv/graphd/planner/exec"
	"github.com/graphkv/graphd/transport"
	"github.com/graphkv/graphd/wire"
)

// RoutedClient implements exec.StorageClient by splitting a
// multi-partition request across the storage hosts the catalog assigns
// those partitions to, dispatching one sub-request per host, and
// merging the per-host responses back into one — the graph-tier analog
// of storagesvc's own fanOutPartitions, one level up the stack (across
// hosts instead of across local partitions).
type RoutedClient struct {
	spaceID int32
	view    func() *catalog.View
	logger  log.Logger

	mu      sync.Mutex
	clients map[string]*transport.Client
}

// NewRoutedClient returns a RoutedClient for spaceID, resolving
// partition ownership through view on every call (so it always sees the
// catalog's latest partition map, per §5's "meta cache is eventually
// consistent with a refresh interval").
func NewRoutedClient(spaceID int32, view func() *catalog.View, logger log.Logger) *RoutedClient {
	if logger == nil {
		logger = log.Global()
	}
	return &RoutedClient{spaceID: spaceID, view: view, logger: logger, clients: map[string]*transport.Client{}}
}

func (r *RoutedClient) clientFor(host string) *transport.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[host]; ok {
		return c
	}
	c := transport.NewClient(transport.ClientConfig{Addr: host}, r.logger)
	r.clients[host] = c
	return c
}

// hostForPartition resolves the host a given partition is currently
// owned by, preferring its elected leader and falling back to the first
// replica if none has been elected yet.
func (r *RoutedClient) hostForPartition(part uint32) (string, error) {
	pa, ok := r.view().Partition(r.spaceID, part)
	if !ok {
		return "", fmt.Errorf("graphsvc: no partition assignment for space %d partition %d", r.spaceID, part)
	}
	if pa.Leader != "" {
		return pa.Leader, nil
	}
	if len(pa.Hosts) == 0 {
		return "", fmt.Errorf("graphsvc: partition %d of space %d has no assigned hosts", part, r.spaceID)
	}
	return pa.Hosts[0], nil
}

// groupByHost partitions keys (a request's per-partition map) by the
// host that currently owns each partition.
func groupByHost[T any](r *RoutedClient, parts map[uint32]T) (map[string]map[uint32]T, error) {
	out := map[string]map[uint32]T{}
	for part, v := range parts {
		host, err := r.hostForPartition(part)
		if err != nil {
			return nil, err
		}
		if out[host] == nil {
			out[host] = map[uint32]T{}
		}
		out[host][part] = v
	}
	return out, nil
}

// GetNeighbors implements exec.StorageClient.
func (r *RoutedClient) GetNeighbors(ctx context.Context, req *wire.GetNeighborsRequest) (*wire.GetNeighborsResponse, error) {
	groups, err := groupByHost(r, req.Parts)
	if err != nil {
		return nil, err
	}
	merged := &wire.GetNeighborsResponse{}
	for _, host := range sortedHosts(groups) {
		sub := *req
		sub.Parts = groups[host]
		var resp wire.GetNeighborsResponse
		if err := r.clientFor(host).Call(ctx, "GetNeighbors", &sub, &resp); err != nil {
			merged.Parts = append(merged.Parts, partsForFailure(groups[host], err)...)
			if !req.AcceptPartialSuccess {
				return merged, err
			}
			continue
		}
		merged.Rows = append(merged.Rows, resp.Rows...)
		merged.Parts = append(merged.Parts, resp.Parts...)
	}
	return merged, nil
}

// GetProp implements exec.StorageClient. Req.Props is already keyed by
// partition, so a partition's own key order (and thus its row order,
// per storagesvc/read.go) survives being routed to its owning host
// untouched; only the across-partition interleaving is host-grouped.
func (r *RoutedClient) GetProp(ctx context.Context, req *wire.GetPropRequest) (*wire.GetPropResponse, error) {
	groups, err := groupByHost(r, req.Props)
	if err != nil {
		return nil, err
	}
	merged := &wire.GetPropResponse{}
	for _, host := range sortedHosts(groups) {
		sub := *req
		sub.Props = groups[host]
		var resp wire.GetPropResponse
		if err := r.clientFor(host).Call(ctx, "GetProp", &sub, &resp); err != nil {
			// GetPropRequest carries no accept_partial_success flag (§6):
			// storagesvc.Service.GetProp itself never aborts early on a
			// single key's failure, so graphsvc mirrors that and always
			// continues to the remaining hosts.
			merged.Parts = append(merged.Parts, partsForFailure(groups[host], err)...)
			continue
		}
		merged.Rows = append(merged.Rows, resp.Rows...)
		merged.Parts = append(merged.Parts, resp.Parts...)
	}
	return merged, nil
}

// Scan implements exec.StorageClient. A ScanRequest targets exactly one
// partition, so Scan never needs to merge across hosts — it routes the
// whole request to that partition's current owner.
func (r *RoutedClient) Scan(ctx context.Context, req *wire.ScanRequest) (*wire.ScanResponse, error) {
	host, err := r.hostForPartition(req.Part)
	if err != nil {
		return nil, err
	}
	var resp wire.ScanResponse
	if err := r.clientFor(host).Call(ctx, "Scan", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func sortedHosts[T any](groups map[string]map[uint32]T) []string {
	hosts := make([]string, 0, len(groups))
	for h := range groups {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func partsForFailure[T any](parts map[uint32]T, err error) []wire.PartResult {
	out := make([]wire.PartResult, 0, len(parts))
	for part := range parts {
		out = append(out, wire.PartResult{PartitionID: part, Code: wire.CodeRPCFailure, Message: err.Error()})
	}
	return out
}

var _ exec.StorageClient = (*RoutedClient)(nil)
