// Package storagekey implements the bit-exact key codec of spec.md §4.2
// and §3's "Key layout" as a set of pure functions: no class, no schema
// lookup. Callers pass the vertex-id length retrieved from the metadata
// cache; the codec never reaches into schema itself.
//
// All multi-byte integer fields are little-endian to preserve memcmp
// ordering on the individual integer components the way the key layout
// in spec.md §3 requires; versions are stored inverted (bitwise NOT of
// the logical version) so the newest version of a row sorts first
// during prefix iteration.
package storagekey

import (
	"encoding/binary"
	"errors"

	"github.com/cespare/xxhash/v2"
)

// ErrKeyFormat is returned by every Parse* function when the input's
// length or leading type byte doesn't match what that function expects
// (spec.md §4.2 "E_KEY_FORMAT").
var ErrKeyFormat = errors.New("storagekey: E_KEY_FORMAT")

// KeyKind is the leading discriminator byte every encoded key carries,
// letting a raw key be classified (as the compaction filter in kv must)
// without external context.
type KeyKind byte

const (
	KindVertex KeyKind = iota + 1
	KindEdge
	KindIndex
	KindLock
	KindSystem
)

const partitionIDLen = 4

// writePartitionID appends a 4-byte little-endian partition id.
func writePartitionID(buf []byte, partitionID uint32) []byte {
	var b [partitionIDLen]byte
	binary.LittleEndian.PutUint32(b[:], partitionID)
	return append(buf, b[:]...)
}

func readPartitionID(key []byte) (uint32, []byte, error) {
	if len(key) < partitionIDLen {
		return 0, nil, ErrKeyFormat
	}
	return binary.LittleEndian.Uint32(key[:partitionIDLen]), key[partitionIDLen:], nil
}

// invertVersion bitwise-inverts a version number so ordering on the raw
// bytes sorts descending (newest first) for ascending key iteration.
func invertVersion(v uint64) uint64 { return ^v }

func writeU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func readU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, ErrKeyFormat
	}
	return binary.LittleEndian.Uint64(b[:8]), b[8:], nil
}

func writeI32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func readI32(b []byte) (int32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, ErrKeyFormat
	}
	return int32(binary.LittleEndian.Uint32(b[:4])), b[4:], nil
}

func writeVID(buf []byte, vid []byte, vidLen int) ([]byte, error) {
	if len(vid) != vidLen {
		return nil, ErrKeyFormat
	}
	return append(buf, vid...), nil
}

func readVID(b []byte, vidLen int) ([]byte, []byte, error) {
	if len(b) < vidLen {
		return nil, nil, ErrKeyFormat
	}
	return append([]byte(nil), b[:vidLen]...), b[vidLen:], nil
}

// VertexKey is the decoded form of a vertex row key (§3 "Vertex key:
// partition_id | vertex_id | tag_id | version").
type VertexKey struct {
	PartitionID uint32
	VertexID    []byte
	TagID       int32
	Version     uint64
}

// BuildVertexKey encodes k, given the space's vertex-id length.
func BuildVertexKey(k VertexKey, vidLen int) ([]byte, error) {
	buf := make([]byte, 0, 1+partitionIDLen+vidLen+4+8)
	buf = append(buf, byte(KindVertex))
	buf = writePartitionID(buf, k.PartitionID)
	var err error
	buf, err = writeVID(buf, k.VertexID, vidLen)
	if err != nil {
		return nil, err
	}
	buf = writeI32(buf, k.TagID)
	buf = writeU64(buf, invertVersion(k.Version))
	return buf, nil
}

// ParseVertexKey decodes a vertex key produced by BuildVertexKey.
func ParseVertexKey(key []byte, vidLen int) (VertexKey, error) {
	if len(key) == 0 || KeyKind(key[0]) != KindVertex {
		return VertexKey{}, ErrKeyFormat
	}
	rest := key[1:]
	pid, rest, err := readPartitionID(rest)
	if err != nil {
		return VertexKey{}, err
	}
	vid, rest, err := readVID(rest, vidLen)
	if err != nil {
		return VertexKey{}, err
	}
	tagID, rest, err := readI32(rest)
	if err != nil {
		return VertexKey{}, err
	}
	invVer, rest, err := readU64(rest)
	if err != nil {
		return VertexKey{}, err
	}
	if len(rest) != 0 {
		return VertexKey{}, ErrKeyFormat
	}
	return VertexKey{PartitionID: pid, VertexID: vid, TagID: tagID, Version: invertVersion(invVer)}, nil
}

// EdgeKey is the decoded form of an edge row key (§3 "Edge key:
// partition_id | src_vid | edge_type (signed) | rank | dst_vid |
// version"). EdgeType is positive for a forward (outgoing) edge row and
// negative for the mirrored reverse row.
type EdgeKey struct {
	PartitionID uint32
	SrcVID      []byte
	EdgeType    int32
	Rank        int64
	DstVID      []byte
	Version     uint64
}

// BuildEdgeKey encodes k, given the space's vertex-id length.
func BuildEdgeKey(k EdgeKey, vidLen int) ([]byte, error) {
	buf := make([]byte, 0, 1+partitionIDLen+vidLen+4+8+vidLen+8)
	buf = append(buf, byte(KindEdge))
	buf = writePartitionID(buf, k.PartitionID)
	var err error
	buf, err = writeVID(buf, k.SrcVID, vidLen)
	if err != nil {
		return nil, err
	}
	buf = writeI32(buf, k.EdgeType)
	buf = writeU64(buf, uint64(k.Rank))
	buf, err = writeVID(buf, k.DstVID, vidLen)
	if err != nil {
		return nil, err
	}
	buf = writeU64(buf, invertVersion(k.Version))
	return buf, nil
}

// ParseEdgeKey decodes an edge key produced by BuildEdgeKey.
func ParseEdgeKey(key []byte, vidLen int) (EdgeKey, error) {
	if len(key) == 0 || KeyKind(key[0]) != KindEdge {
		return EdgeKey{}, ErrKeyFormat
	}
	rest := key[1:]
	pid, rest, err := readPartitionID(rest)
	if err != nil {
		return EdgeKey{}, err
	}
	src, rest, err := readVID(rest, vidLen)
	if err != nil {
		return EdgeKey{}, err
	}
	etype, rest, err := readI32(rest)
	if err != nil {
		return EdgeKey{}, err
	}
	rank, rest, err := readU64(rest)
	if err != nil {
		return EdgeKey{}, err
	}
	dst, rest, err := readVID(rest, vidLen)
	if err != nil {
		return EdgeKey{}, err
	}
	invVer, rest, err := readU64(rest)
	if err != nil {
		return EdgeKey{}, err
	}
	if len(rest) != 0 {
		return EdgeKey{}, ErrKeyFormat
	}
	return EdgeKey{
		PartitionID: pid, SrcVID: src, EdgeType: etype, Rank: int64(rank),
		DstVID: dst, Version: invertVersion(invVer),
	}, nil
}

// IndexKey is the decoded form of a secondary-index key (§3 "Index key:
// partition_id | index_id | encoded_field_values | reference_key").
type IndexKey struct {
	PartitionID       uint32
	IndexID           int32
	EncodedFieldValues []byte
	ReferenceKey      []byte // vertex id, or an edge endpoint triple's encoding
}

// BuildIndexKey encodes k. EncodedFieldValues and ReferenceKey are
// opaque to the codec (produced by the schema-aware row encoder), so
// ReferenceKey's length is stored explicitly to make parsing total.
func BuildIndexKey(k IndexKey) []byte {
	buf := make([]byte, 0, 1+partitionIDLen+4+4+len(k.EncodedFieldValues)+4+len(k.ReferenceKey))
	buf = append(buf, byte(KindIndex))
	buf = writePartitionID(buf, k.PartitionID)
	buf = writeI32(buf, k.IndexID)
	buf = writeI32(buf, int32(len(k.EncodedFieldValues)))
	buf = append(buf, k.EncodedFieldValues...)
	buf = writeI32(buf, int32(len(k.ReferenceKey)))
	buf = append(buf, k.ReferenceKey...)
	return buf
}

// ParseIndexKey decodes an index key produced by BuildIndexKey.
func ParseIndexKey(key []byte) (IndexKey, error) {
	if len(key) == 0 || KeyKind(key[0]) != KindIndex {
		return IndexKey{}, ErrKeyFormat
	}
	rest := key[1:]
	pid, rest, err := readPartitionID(rest)
	if err != nil {
		return IndexKey{}, err
	}
	indexID, rest, err := readI32(rest)
	if err != nil {
		return IndexKey{}, err
	}
	fvLen, rest, err := readI32(rest)
	if err != nil || fvLen < 0 || int(fvLen) > len(rest) {
		return IndexKey{}, ErrKeyFormat
	}
	fv := rest[:fvLen]
	rest = rest[fvLen:]
	refLen, rest, err := readI32(rest)
	if err != nil || refLen < 0 || int(refLen) > len(rest) {
		return IndexKey{}, ErrKeyFormat
	}
	ref := rest[:refLen]
	rest = rest[refLen:]
	if len(rest) != 0 {
		return IndexKey{}, ErrKeyFormat
	}
	return IndexKey{
		PartitionID: pid, IndexID: indexID,
		EncodedFieldValues: append([]byte(nil), fv...),
		ReferenceKey:       append([]byte(nil), ref...),
	}, nil
}

// LockKey addresses the optimistic-lock row guarding a pending edge
// mutation (§4.3 "Lock key: kept iff its edge schema exists").
type LockKey struct {
	PartitionID uint32
	SrcVID      []byte
	EdgeType    int32
	Rank        int64
	DstVID      []byte
}

// BuildLockKey encodes k.
func BuildLockKey(k LockKey, vidLen int) ([]byte, error) {
	buf := make([]byte, 0, 1+partitionIDLen+vidLen+4+8+vidLen)
	buf = append(buf, byte(KindLock))
	buf = writePartitionID(buf, k.PartitionID)
	var err error
	buf, err = writeVID(buf, k.SrcVID, vidLen)
	if err != nil {
		return nil, err
	}
	buf = writeI32(buf, k.EdgeType)
	buf = writeU64(buf, uint64(k.Rank))
	buf, err = writeVID(buf, k.DstVID, vidLen)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// ParseLockKey decodes a lock key produced by BuildLockKey.
func ParseLockKey(key []byte, vidLen int) (LockKey, error) {
	if len(key) == 0 || KeyKind(key[0]) != KindLock {
		return LockKey{}, ErrKeyFormat
	}
	rest := key[1:]
	pid, rest, err := readPartitionID(rest)
	if err != nil {
		return LockKey{}, err
	}
	src, rest, err := readVID(rest, vidLen)
	if err != nil {
		return LockKey{}, err
	}
	etype, rest, err := readI32(rest)
	if err != nil {
		return LockKey{}, err
	}
	rank, rest, err := readU64(rest)
	if err != nil {
		return LockKey{}, err
	}
	dst, rest, err := readVID(rest, vidLen)
	if err != nil {
		return LockKey{}, err
	}
	if len(rest) != 0 {
		return LockKey{}, ErrKeyFormat
	}
	return LockKey{PartitionID: pid, SrcVID: src, EdgeType: etype, Rank: int64(rank), DstVID: dst}, nil
}

// PartitionOf hashes vid into one of numPartitions partitions, the same
// xxhash.Sum64 the cache package's sharded bucket lookup uses
// (cache/cache.go), here modded into a partition id rather than a
// bucket index. Callers needing a vid's partition (the executor
// building a GetNeighbors/GetProp request, a write path choosing where
// to place a new vertex) always go through this function so placement
// stays consistent everywhere.
func PartitionOf(vid []byte, numPartitions int32) uint32 {
	if numPartitions <= 0 {
		return 0
	}
	return uint32(xxhash.Sum64(vid) % uint64(numPartitions))
}
