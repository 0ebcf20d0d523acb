package graphsvc

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphkv/graphd/internal/log"
	"github.com/graphkv/graphd/meta/catalog"
	"github.com/graphkv/graphd/transport"
	"github.com/graphkv/graphd/wire"
)

func newStorageStub(t *testing.T, host string, handle func(req *wire.GetNeighborsRequest) *wire.GetNeighborsResponse) *httptest.Server {
	t.Helper()
	mux := transport.NewMux(nil, log.Global())
	transport.HandleTyped(mux, "GetNeighbors", func(ctx context.Context, req *wire.GetNeighborsRequest) (*wire.GetNeighborsResponse, error) {
		return handle(req), nil
	})
	return httptest.NewServer(mux)
}

func TestRoutedClientGetNeighborsFansOutPerHost(t *testing.T) {
	var sawA, sawB []uint32

	srvA := newStorageStub(t, "A", func(req *wire.GetNeighborsRequest) *wire.GetNeighborsResponse {
		for p := range req.Parts {
			sawA = append(sawA, p)
		}
		return &wire.GetNeighborsResponse{
			Rows:  []wire.NeighborRow{{VID: "from-A"}},
			Parts: []wire.PartResult{{PartitionID: 0, Code: wire.CodeOK}},
		}
	})
	defer srvA.Close()

	srvB := newStorageStub(t, "B", func(req *wire.GetNeighborsRequest) *wire.GetNeighborsResponse {
		for p := range req.Parts {
			sawB = append(sawB, p)
		}
		return &wire.GetNeighborsResponse{
			Rows:  []wire.NeighborRow{{VID: "from-B"}},
			Parts: []wire.PartResult{{PartitionID: 1, Code: wire.CodeOK}},
		}
	})
	defer srvB.Close()

	addrA := strings.TrimPrefix(srvA.URL, "http://")
	addrB := strings.TrimPrefix(srvB.URL, "http://")

	cat := catalog.New()
	cat.SetPartition(catalog.PartitionAssignment{SpaceID: 1, PartitionID: 0, Hosts: []string{addrA}, Leader: addrA})
	cat.SetPartition(catalog.PartitionAssignment{SpaceID: 1, PartitionID: 1, Hosts: []string{addrB}, Leader: addrB})

	rc := NewRoutedClient(1, cat.Snapshot, log.Global())
	resp, err := rc.GetNeighbors(context.Background(), &wire.GetNeighborsRequest{
		Space: "s", Parts: map[uint32][]string{0: {"1"}, 1: {"2"}},
	})
	if err != nil {
		t.Fatalf("GetNeighbors: %v", err)
	}
	if len(resp.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2", len(resp.Rows))
	}
	if len(sawA) != 1 || sawA[0] != 0 {
		t.Fatalf("host A saw partitions %v, want [0]", sawA)
	}
	if len(sawB) != 1 || sawB[0] != 1 {
		t.Fatalf("host B saw partitions %v, want [1]", sawB)
	}
}

func TestRoutedClientGetNeighborsUnknownPartition(t *testing.T) {
	cat := catalog.New()
	rc := NewRoutedClient(1, cat.Snapshot, log.Global())
	_, err := rc.GetNeighbors(context.Background(), &wire.GetNeighborsRequest{
		Space: "s", Parts: map[uint32][]string{7: {"1"}},
	})
	if err == nil {
		t.Fatal("expected error for unassigned partition")
	}
}

func TestRoutedClientScanRoutesToOwningHost(t *testing.T) {
	mux := transport.NewMux(nil, log.Global())
	var gotPart uint32 = 99
	transport.HandleTyped(mux, "Scan", func(ctx context.Context, req *wire.ScanRequest) (*wire.ScanResponse, error) {
		gotPart = req.Part
		return &wire.ScanResponse{Code: wire.CodeOK}, nil
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")

	cat := catalog.New()
	cat.SetPartition(catalog.PartitionAssignment{SpaceID: 2, PartitionID: 3, Hosts: []string{addr}, Leader: addr})

	rc := NewRoutedClient(2, cat.Snapshot, log.Global())
	if _, err := rc.Scan(context.Background(), &wire.ScanRequest{Space: "s", Part: 3}); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if gotPart != 3 {
		t.Fatalf("Part = %d, want 3", gotPart)
	}
}
