// Package wire defines the RPC message shapes of spec.md §6: field
// names are normative, transport is opaque — spec.md §1 explicitly
// rules the wire RPC library itself out of scope ("only message shapes
// matter"). These are plain Go structs with JSON tags; transport moves
// them as JSON bodies the way server/server.go's handlers read/write
// JSON requests and responses.
package wire

import "github.com/graphkv/graphd/value"

// Code is a per-partition or per-request result code (§7's taxonomy of
// kinds, carried as a short machine-readable string rather than an
// integer wire code since spec.md treats the taxonomy as kinds, not
// codes).
type Code string

const (
	CodeOK                  Code = "OK"
	CodeLeaderChanged        Code = "E_LEADER_CHANGED"
	CodeNotLeader            Code = "E_NOT_LEADER"
	CodePartNotFound         Code = "E_PART_NOT_FOUND"
	CodeSpaceNotFound        Code = "E_SPACE_NOT_FOUND"
	CodeKeyFormat            Code = "E_KEY_FORMAT"
	CodeRPCFailure           Code = "E_RPC_FAILURE"
	CodeDisconnected         Code = "E_DISCONNECTED"
	CodeTimeout              Code = "E_TIMEOUT"
	CodeWriteBlocked         Code = "E_WRITE_BLOCKED"
	CodeIndexRebuilding      Code = "E_INDEX_REBUILDING"
	CodeBackupSpaceNotFound  Code = "E_BACKUP_SPACE_NOT_FOUND"
	CodeBackupFailed         Code = "E_BACKUP_FAILED"
	CodeBackupBuildingIndex  Code = "E_BACKUP_BUILDING_INDEX"
	CodePlanKilled           Code = "E_PLAN_KILLED"
)

// PartResult is one partition's status within a multi-partition
// response (§4.5 "a response carries per-partition status codes").
type PartResult struct {
	PartitionID uint32 `json:"partition_id"`
	Code        Code   `json:"code"`
	Message     string `json:"message,omitempty"`
}

// ExecResponse is the shared shape of AddVertices/AddEdges responses
// (§6 "ExecResponse{per-partition code}").
type ExecResponse struct {
	Parts []PartResult `json:"parts"`
}

// VertexInput is one vertex to write, keyed by tag (§6 "{vid, [tag_id,
// prop_names, prop_values]}").
type VertexInput struct {
	VID  string     `json:"vid"`
	Tags []TagInput `json:"tags"`
}

// TagInput is one tag's property set for a vertex write.
type TagInput struct {
	TagID      int32          `json:"tag_id"`
	PropNames  []string       `json:"prop_names"`
	PropValues []value.Value  `json:"prop_values"`
}

// AddVerticesRequest is §6's AddVertices RPC.
type AddVerticesRequest struct {
	Space              string                   `json:"space"`
	Parts              map[uint32][]VertexInput `json:"parts"`
	IfNotExists        bool                     `json:"if_not_exists"`
	IgnoreExistedIndex bool                     `json:"ignore_existed_index"`
}

// EdgeInput is one edge to write.
type EdgeInput struct {
	EdgeKey    EdgeKeyInput  `json:"edge_key"`
	PropNames  []string      `json:"prop_names"`
	PropValues []value.Value `json:"prop_values"`
}

// EdgeKeyInput addresses one logical edge (the forward/reverse pair is
// an AddEdgesProcessor implementation detail, not part of the wire
// shape — a caller always names the forward direction).
type EdgeKeyInput struct {
	SrcVID   string `json:"src_vid"`
	EdgeType int32  `json:"edge_type"`
	Rank     int64  `json:"rank"`
	DstVID   string `json:"dst_vid"`
	Version  *int64 `json:"version,omitempty"` // not read by AddEdges, which writes every edge at version 0
}

// AddEdgesRequest is §6's AddEdges RPC.
type AddEdgesRequest struct {
	Space string                 `json:"space"`
	Parts map[uint32][]EdgeInput `json:"parts"`
}

// TraverseOptions configures a GetNeighbors expansion.
type TraverseOptions struct {
	MaxRows       int64  `json:"max_rows,omitempty"`
	RandomSample  bool   `json:"random_sample,omitempty"`
	OrderByRank   bool   `json:"order_by_rank,omitempty"`
}

// GetNeighborsRequest is §6's GetNeighbors RPC ("hottest read path",
// §4.5).
type GetNeighborsRequest struct {
	Space           string             `json:"space"`
	Parts           map[uint32][]string `json:"parts"` // partition -> vertex ids
	EdgeTypes       []int32            `json:"edge_types"` // signed: positive=out, negative=in
	VertexProps     map[int32][]string `json:"vertex_props"` // tag_id -> prop names
	EdgeProps       map[int32][]string `json:"edge_props"`   // edge_type -> prop names
	FilterExpr      []byte             `json:"filter_expr,omitempty"` // expression.Encode output
	TraverseOptions TraverseOptions    `json:"traverse_options"`
	AcceptPartialSuccess bool          `json:"accept_partial_success"`
}

// NeighborRow is one source vertex's output row (§4.5 "emits one output
// row per source vertex containing: the vertex properties, and, per
// edge type, a list of [dst, rank, edge-props...]").
type NeighborRow struct {
	VID        string                    `json:"vid"`
	VertexProp map[int32]map[string]value.Value `json:"vertex_prop"`
	Edges      map[int32][]NeighborEdge  `json:"edges"` // edge_type -> edges
}

// NeighborEdge is one edge within a NeighborRow.
type NeighborEdge struct {
	Dst   string                   `json:"dst"`
	Rank  int64                    `json:"rank"`
	Props map[string]value.Value   `json:"props"`
}

// GetNeighborsResponse is §6's GetNeighborsResponse{dataset, schema,
// per-partition code}.
type GetNeighborsResponse struct {
	Rows  []NeighborRow `json:"rows"`
	Parts []PartResult  `json:"parts"`
}

// GetPropRequest is §6's GetProp RPC: point lookups by key list
// (§4.5 "point lookups by key list").
type GetPropRequest struct {
	Space string              `json:"space"`
	Props map[uint32][][]byte `json:"props"` // partition -> storagekey-encoded keys
}

// GetPropResponse returns one row per requested key, in request order;
// a missing key yields a nil Values.
type GetPropResponse struct {
	Rows  []map[string]value.Value `json:"rows"`
	Parts []PartResult             `json:"parts"`
}

// ScanRequest drives ScanVertex/ScanEdge (§6 "partition-ordered range
// scan with a continuation cursor").
type ScanRequest struct {
	Space     string   `json:"space"`
	Part      uint32   `json:"part"`
	Kind      string   `json:"kind"` // "vertex"|"edge" — ScanVertex vs. ScanEdge
	Cursor    []byte   `json:"cursor,omitempty"`
	PropNames []string `json:"props"`
	Limit     int      `json:"limit"`
}

// ScanResponse is §6's ScanResponse{rows, next_cursor}.
type ScanResponse struct {
	Rows       []map[string]value.Value `json:"rows"`
	NextCursor []byte                   `json:"next_cursor,omitempty"`
	Code       Code                     `json:"code"`
}

// ClearSpaceRequest drives ClearSpaceProcessor.
type ClearSpaceRequest struct {
	Space string `json:"space"`
}

// ClearSpaceResponse reports per-partition outcome.
type ClearSpaceResponse struct {
	Parts []PartResult `json:"parts"`
}

// CreateCheckpointRequest is §6's CreateCheckpoint RPC.
type CreateCheckpointRequest struct {
	SpaceIDs []int32 `json:"space_ids"`
	Name     string  `json:"name"`
}

// PartCheckpoint is one partition's checkpoint report (§6
// "parts:{part_id→{log_id, term_id}}" plus data_path).
type PartCheckpoint struct {
	LogID    uint64 `json:"log_id"`
	TermID   uint64 `json:"term_id"`
	DataPath string `json:"data_path"`
}

// SpaceCheckpoint is one space's checkpoint report.
type SpaceCheckpoint struct {
	SpaceID int32                    `json:"space_id"`
	Parts   map[uint32]PartCheckpoint `json:"parts"`
	DataPath string                  `json:"data_path"`
}

// CreateCheckpointResponse is §6's CreateCPResponse.
type CreateCheckpointResponse struct {
	Spaces []SpaceCheckpoint `json:"spaces"`
	Code   Code              `json:"code"`
}

// DropCheckpointRequest is §6's DropCheckpoint RPC.
type DropCheckpointRequest struct {
	SpaceIDs []int32 `json:"space_ids"`
	Name     string  `json:"name"`
}

// DropCheckpointResponse is §6's DropCPResponse.
type DropCheckpointResponse struct {
	Code Code `json:"code"`
}

// BlockSign is §6's BLOCK_ON / BLOCK_OFF toggle.
type BlockSign string

const (
	BlockOn  BlockSign = "BLOCK_ON"
	BlockOff BlockSign = "BLOCK_OFF"
)

// BlockingWritesRequest is §6's BlockingWrites RPC.
type BlockingWritesRequest struct {
	SpaceIDs []int32   `json:"space_ids"`
	Sign     BlockSign `json:"sign"`
}

// BlockingWritesResponse is §6's BlockingSignResponse.
type BlockingWritesResponse struct {
	Code Code `json:"code"`
}

// Meta RPCs (§6 "Meta: CreateSnapshot(), DropSnapshot(names),
// ListSnapshots(), CreateBackup(spaces?), ListSpaces, ListParts(space,
// [part_ids]), schema and index CRUD, host register/heartbeat").

// CreateSnapshotRequest has no fields beyond a name; spec.md's
// CreateSnapshot() takes none, the name is assigned by the coordinator.
type CreateSnapshotRequest struct {
	SpaceIDs []int32 `json:"space_ids,omitempty"`
}

// SnapshotInfo mirrors meta/snapshot.Record over the wire.
type SnapshotInfo struct {
	Name   string   `json:"name"`
	Status string   `json:"status"` // "INVALID" or "VALID"
	Hosts  []string `json:"hosts"`
}

// CreateSnapshotResponse reports the finished (or failed) record.
type CreateSnapshotResponse struct {
	Snapshot SnapshotInfo `json:"snapshot"`
	Code     Code         `json:"code"`
}

// DropSnapshotRequest is §6's DropSnapshot(names).
type DropSnapshotRequest struct {
	Names []string `json:"names"`
}

// DropSnapshotResponse reports per-name outcome.
type DropSnapshotResponse struct {
	Code Code `json:"code"`
}

// ListSnapshotsResponse is §6's ListSnapshots().
type ListSnapshotsResponse struct {
	Snapshots []SnapshotInfo `json:"snapshots"`
}

// CreateBackupRequest is §6's CreateBackup(spaces?).
type CreateBackupRequest struct {
	SpaceIDs []int32 `json:"space_ids,omitempty"`
}

// ListSpacesResponse is §6's ListSpaces.
type ListSpacesResponse struct {
	Spaces []SpaceInfo `json:"spaces"`
}

// SpaceInfo is one space's public descriptor.
type SpaceInfo struct {
	ID             int32  `json:"id"`
	Name           string `json:"name"`
	PartitionCount int32  `json:"partition_count"`
	ReplicaFactor  int32  `json:"replica_factor"`
}

// ListPartsRequest is §6's ListParts(space, [part_ids]).
type ListPartsRequest struct {
	Space   string   `json:"space"`
	PartIDs []uint32 `json:"part_ids,omitempty"`
}

// PartInfo is one partition's host assignment, the wire form of
// catalog.PartitionAssignment.
type PartInfo struct {
	PartitionID uint32   `json:"partition_id"`
	Hosts       []string `json:"hosts"`
	Leader      string   `json:"leader"`
}

// ListPartsResponse is §6's ListParts response.
type ListPartsResponse struct {
	Parts []PartInfo `json:"parts"`
}

// HostRegisterRequest is §6's "host register/heartbeat".
type HostRegisterRequest struct {
	Addr string `json:"addr"`
	Zone string `json:"zone"`
}

// HostHeartbeatRequest refreshes a previously registered host.
type HostHeartbeatRequest struct {
	Addr string `json:"addr"`
}

// HostAckResponse acknowledges a register/heartbeat call.
type HostAckResponse struct {
	Code Code `json:"code"`
}

// FieldSpec is the wire form of one schema.Field.
type FieldSpec struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"` // "bool"|"int"|"float"|"string"|"fixed_string"|"date"|"time"|"datetime"|"duration"
	FixedStrLen int    `json:"fixed_string_len,omitempty"`
	Nullable    bool   `json:"nullable"`
}

// CreateTagRequest / CreateEdgeTypeRequest are §6's "schema... CRUD".
type CreateTagRequest struct {
	Space  string      `json:"space"`
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
}

// CreateEdgeTypeRequest mirrors CreateTagRequest for edge types.
type CreateEdgeTypeRequest struct {
	Space  string      `json:"space"`
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
}

// SchemaAckResponse acknowledges a schema/index CRUD call, returning
// the version assigned to the altered object.
type SchemaAckResponse struct {
	Version int32 `json:"version"`
	Code    Code  `json:"code"`
}

// CreateIndexRequest is §6's "index... CRUD".
type CreateIndexRequest struct {
	Space      string   `json:"space"`
	Name       string   `json:"name"`
	OwnerKind  string   `json:"owner_kind"` // "tag"|"edge_type"
	OwnerName  string   `json:"owner_name"`
	FieldNames []string `json:"field_names"`
}

// PlanNode is one node pattern in a match path sent to the Plan RPC
// (§4.6): an alias plus an optional tag restriction.
type PlanNode struct {
	Alias string `json:"alias"`
	Tag   string `json:"tag,omitempty"`
}

// PlanEdge is one edge pattern between two consecutive PlanNodes.
type PlanEdge struct {
	Alias     string  `json:"alias,omitempty"`
	EdgeTypes []int32 `json:"edge_types,omitempty"`
	Direction string  `json:"direction"` // "out"|"in"|"both"
	MinSteps  int     `json:"min_steps,omitempty"`
	MaxSteps  int     `json:"max_steps,omitempty"`
}

// PlanRequest asks the graph-planning tier to turn a match path into a
// physical operator DAG (§4.6), without executing it.
type PlanRequest struct {
	Nodes []PlanNode `json:"nodes"`
	Edges []PlanEdge `json:"edges"`
	// IndexedTags lists tags for which an index-backed vid lookup is
	// available, consulted by the index-lookup StartVidFinder.
	IndexedTags []string `json:"indexed_tags,omitempty"`
	// BoundAliases lists aliases already bound by an earlier clause,
	// consulted by the argument-passing StartVidFinder.
	BoundAliases []string `json:"bound_aliases,omitempty"`
}

// PlanOperatorDesc describes one operator in the planned DAG, in
// insertion order.
type PlanOperatorDesc struct {
	ID      int      `json:"id"`
	Kind    string   `json:"kind"`
	Columns []string `json:"columns,omitempty"`
}

// PlanResponse is the resulting operator DAG: every operator the arena
// holds, in insertion order, plus the planned SubPlan's tail/root ids.
type PlanResponse struct {
	Operators []PlanOperatorDesc `json:"operators"`
	TailID    int                `json:"tail_id"`
	RootID    int                `json:"root_id"`
	Code      Code               `json:"code"`
}
