package storagekey

// SystemKeyKind enumerates the system key categories named in §3
// ("snapshots, partition assignments, schemas, hosts, zones") plus the
// leader and machine categories §4.2 lists among system keys. Supplied
// because spec.md names the categories but not a concrete layout
// (SPEC_FULL.md §3.4); resolved with one builder/parser pair per kind,
// following original_source's MetaKeyUtilsTest.cpp "assemble, parse
// back, round-trip" exercise for exactly this set.
type SystemKeyKind byte

const (
	SystemSpace SystemKeyKind = iota + 1
	SystemPart
	SystemSchema
	SystemHost
	SystemLeader
	SystemZone
	SystemSnapshot
	SystemMachine
)

const systemPartitionID = 0xFFFFFFFF // §3: system keys live in a reserved partition.

// SystemKey is the decoded form of any system-space key: a kind byte
// followed by an opaque, kind-specific id string (space name, part id,
// schema name, host address, zone name, snapshot name, machine id).
type SystemKey struct {
	Kind SystemKeyKind
	ID   string
}

// BuildSystemKey encodes k into the reserved system partition.
func BuildSystemKey(k SystemKey) []byte {
	buf := make([]byte, 0, 1+partitionIDLen+1+len(k.ID))
	buf = append(buf, byte(KindSystem))
	buf = writePartitionID(buf, systemPartitionID)
	buf = append(buf, byte(k.Kind))
	buf = append(buf, k.ID...)
	return buf
}

// ParseSystemKey decodes a system key produced by BuildSystemKey.
func ParseSystemKey(key []byte) (SystemKey, error) {
	if len(key) < 1+partitionIDLen+1 || KeyKind(key[0]) != KindSystem {
		return SystemKey{}, ErrKeyFormat
	}
	rest := key[1:]
	pid, rest, err := readPartitionID(rest)
	if err != nil || pid != systemPartitionID {
		return SystemKey{}, ErrKeyFormat
	}
	if len(rest) < 1 {
		return SystemKey{}, ErrKeyFormat
	}
	kind := SystemKeyKind(rest[0])
	id := string(rest[1:])
	return SystemKey{Kind: kind, ID: id}, nil
}

// Convenience builders for each SystemKeyKind, so callers never
// construct a SystemKey literal with the wrong Kind value by hand.

func BuildSpaceKey(name string) []byte    { return BuildSystemKey(SystemKey{Kind: SystemSpace, ID: name}) }
func BuildPartKey(id string) []byte       { return BuildSystemKey(SystemKey{Kind: SystemPart, ID: id}) }
func BuildSchemaKey(id string) []byte     { return BuildSystemKey(SystemKey{Kind: SystemSchema, ID: id}) }
func BuildHostKey(addr string) []byte     { return BuildSystemKey(SystemKey{Kind: SystemHost, ID: addr}) }
func BuildLeaderKey(id string) []byte     { return BuildSystemKey(SystemKey{Kind: SystemLeader, ID: id}) }
func BuildZoneKey(name string) []byte     { return BuildSystemKey(SystemKey{Kind: SystemZone, ID: name}) }
func BuildSnapshotKey(name string) []byte { return BuildSystemKey(SystemKey{Kind: SystemSnapshot, ID: name}) }
func BuildMachineKey(id string) []byte    { return BuildSystemKey(SystemKey{Kind: SystemMachine, ID: id}) }

// Prefix builders (§4.2 "Prefixes supported: by partition, by
// (partition, vertex), by (partition, vertex, edge-type), by
// (partition, vertex, edge-type, rank, dst)").

// PrefixPartition returns the prefix matching every key (vertex, edge,
// index, lock) stored under partitionID.
func PrefixPartition(kind KeyKind, partitionID uint32) []byte {
	buf := make([]byte, 0, 1+partitionIDLen)
	buf = append(buf, byte(kind))
	return writePartitionID(buf, partitionID)
}

// PrefixVertex returns the prefix matching every (tag, version) row for
// one vertex, across all its tags.
func PrefixVertex(partitionID uint32, vid []byte) []byte {
	buf := PrefixPartition(KindVertex, partitionID)
	return append(buf, vid...)
}

// PrefixVertexTag returns the prefix matching every version of one
// (vertex, tag) pair — the newest sorts first due to version inversion.
func PrefixVertexTag(partitionID uint32, vid []byte, tagID int32) []byte {
	buf := PrefixVertex(partitionID, vid)
	return writeI32(buf, tagID)
}

// PrefixEdgeByVertex returns the prefix matching every outgoing edge row
// from src, across all edge types.
func PrefixEdgeByVertex(partitionID uint32, src []byte) []byte {
	buf := PrefixPartition(KindEdge, partitionID)
	return append(buf, src...)
}

// PrefixEdgeByType returns the prefix matching every edge row from src
// of the given edgeType (positive for outgoing, negative for the stored
// reverse rows), across all rank/dst values.
func PrefixEdgeByType(partitionID uint32, src []byte, edgeType int32) []byte {
	buf := PrefixEdgeByVertex(partitionID, src)
	return writeI32(buf, edgeType)
}

// PrefixEdgeByRankDst returns the prefix matching every version of one
// fully-specified (src, edgeType, rank, dst) edge.
func PrefixEdgeByRankDst(partitionID uint32, src []byte, edgeType int32, rank int64, dst []byte) []byte {
	buf := PrefixEdgeByType(partitionID, src, edgeType)
	buf = writeU64(buf, uint64(rank))
	return append(buf, dst...)
}
