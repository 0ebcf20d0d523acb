package wire

import (
	"encoding/json"
	"testing"

	"github.com/graphkv/graphd/value"
)

func TestAddVerticesRequestRoundTrip(t *testing.T) {
	req := AddVerticesRequest{
		Space: "soccer",
		Parts: map[uint32][]VertexInput{
			0: {
				{
					VID: "player100",
					Tags: []TagInput{
						{TagID: 1, PropNames: []string{"name", "age"}},
					},
				},
			},
		},
		IfNotExists: true,
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out AddVerticesRequest
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Space != req.Space || !out.IfNotExists {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if len(out.Parts[0]) != 1 || out.Parts[0][0].VID != "player100" {
		t.Fatalf("Parts round trip mismatch: %+v", out.Parts)
	}
}

func TestGetNeighborsResponseRoundTrip(t *testing.T) {
	resp := GetNeighborsResponse{
		Rows: []NeighborRow{
			{
				VID: "player100",
				Edges: map[int32][]NeighborEdge{
					101: {{Dst: "team200", Rank: 0, Props: map[string]value.Value{}}},
				},
			},
		},
		Parts: []PartResult{{PartitionID: 3, Code: CodeOK}},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out GetNeighborsResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(out.Rows) != 1 || out.Rows[0].VID != "player100" {
		t.Fatalf("Rows mismatch: %+v", out.Rows)
	}
	if out.Parts[0].Code != CodeOK {
		t.Fatalf("Code mismatch: %+v", out.Parts)
	}
}

func TestCodeMarshalsAsString(t *testing.T) {
	data, err := json.Marshal(PartResult{PartitionID: 1, Code: CodeLeaderChanged})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if raw["code"] != string(CodeLeaderChanged) {
		t.Fatalf("code = %v, want %q", raw["code"], CodeLeaderChanged)
	}
}

func TestCreateCheckpointResponseRoundTrip(t *testing.T) {
	resp := CreateCheckpointResponse{
		Spaces: []SpaceCheckpoint{
			{
				SpaceID: 1,
				Parts: map[uint32]PartCheckpoint{
					0: {LogID: 10, TermID: 2, DataPath: "/data/checkpoints/snap1"},
				},
				DataPath: "/data/checkpoints/snap1",
			},
		},
		Code: CodeOK,
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out CreateCheckpointResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Spaces[0].Parts[0].LogID != 10 {
		t.Fatalf("checkpoint round trip mismatch: %+v", out.Spaces)
	}
}

func TestCreateTagRequestRoundTrip(t *testing.T) {
	req := CreateTagRequest{
		Space: "soccer",
		Name:  "player",
		Fields: []FieldSpec{
			{Name: "name", Kind: "string"},
			{Name: "age", Kind: "int", Nullable: true},
		},
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out CreateTagRequest
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(out.Fields) != 2 || out.Fields[1].Nullable != true {
		t.Fatalf("Fields round trip mismatch: %+v", out.Fields)
	}
}
