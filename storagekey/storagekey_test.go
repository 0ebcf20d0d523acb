package storagekey

import (
	"bytes"
	"testing"
)

const vidLen = 8

func vid(n byte) []byte { return bytes.Repeat([]byte{n}, vidLen) }

func TestVertexKeyRoundTrip(t *testing.T) {
	k := VertexKey{PartitionID: 3, VertexID: vid(1), TagID: 42, Version: 7}
	enc, err := BuildVertexKey(k, vidLen)
	if err != nil {
		t.Fatalf("BuildVertexKey: %v", err)
	}
	got, err := ParseVertexKey(enc, vidLen)
	if err != nil {
		t.Fatalf("ParseVertexKey: %v", err)
	}
	if got.PartitionID != 3 || got.TagID != 42 || got.Version != 7 || !bytes.Equal(got.VertexID, k.VertexID) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, k)
	}
}

func TestVertexKeyRejectsWrongVIDLength(t *testing.T) {
	enc, err := BuildVertexKey(VertexKey{VertexID: vid(1)}, vidLen)
	if err != nil {
		t.Fatalf("BuildVertexKey: %v", err)
	}
	if _, err := ParseVertexKey(enc, vidLen+1); err != ErrKeyFormat {
		t.Fatalf("ParseVertexKey with wrong vidLen = %v, want ErrKeyFormat", err)
	}
}

func TestNewerVersionSortsFirst(t *testing.T) {
	older, _ := BuildVertexKey(VertexKey{VertexID: vid(1), TagID: 1, Version: 1}, vidLen)
	newer, _ := BuildVertexKey(VertexKey{VertexID: vid(1), TagID: 1, Version: 2}, vidLen)
	if bytes.Compare(newer, older) >= 0 {
		t.Fatalf("expected newer version's key to sort before older version's key")
	}
}

func TestEdgeKeyRoundTripForwardAndReverse(t *testing.T) {
	fwd := EdgeKey{PartitionID: 1, SrcVID: vid(1), EdgeType: 5, Rank: 10, DstVID: vid(2), Version: 1}
	rev := EdgeKey{PartitionID: 2, SrcVID: vid(2), EdgeType: -5, Rank: 10, DstVID: vid(1), Version: 1}
	for _, k := range []EdgeKey{fwd, rev} {
		enc, err := BuildEdgeKey(k, vidLen)
		if err != nil {
			t.Fatalf("BuildEdgeKey(%+v): %v", k, err)
		}
		got, err := ParseEdgeKey(enc, vidLen)
		if err != nil {
			t.Fatalf("ParseEdgeKey: %v", err)
		}
		if got.EdgeType != k.EdgeType || got.Rank != k.Rank || !bytes.Equal(got.SrcVID, k.SrcVID) || !bytes.Equal(got.DstVID, k.DstVID) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, k)
		}
	}
}

func TestIndexKeyRoundTrip(t *testing.T) {
	k := IndexKey{PartitionID: 1, IndexID: 9, EncodedFieldValues: []byte("field-values"), ReferenceKey: vid(3)}
	enc := BuildIndexKey(k)
	got, err := ParseIndexKey(enc)
	if err != nil {
		t.Fatalf("ParseIndexKey: %v", err)
	}
	if got.IndexID != k.IndexID || !bytes.Equal(got.EncodedFieldValues, k.EncodedFieldValues) || !bytes.Equal(got.ReferenceKey, k.ReferenceKey) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, k)
	}
}

func TestSystemKeyRoundTrip(t *testing.T) {
	enc := BuildSnapshotKey("snap-2026-07-31")
	got, err := ParseSystemKey(enc)
	if err != nil {
		t.Fatalf("ParseSystemKey: %v", err)
	}
	if got.Kind != SystemSnapshot || got.ID != "snap-2026-07-31" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseRejectsWrongKindByte(t *testing.T) {
	enc, _ := BuildVertexKey(VertexKey{VertexID: vid(1)}, vidLen)
	if _, err := ParseEdgeKey(enc, vidLen); err != ErrKeyFormat {
		t.Fatalf("ParseEdgeKey on a vertex key = %v, want ErrKeyFormat", err)
	}
}

func TestPrefixVertexTagIsPrefixOfFullKey(t *testing.T) {
	full, _ := BuildVertexKey(VertexKey{PartitionID: 1, VertexID: vid(4), TagID: 7, Version: 3}, vidLen)
	prefix := PrefixVertexTag(1, vid(4), 7)
	if !bytes.HasPrefix(full, prefix) {
		t.Fatalf("expected %x to have prefix %x", full, prefix)
	}
}
