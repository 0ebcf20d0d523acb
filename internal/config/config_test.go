package config

import "testing"

func TestParseStripsLineComments(t *testing.T) {
	raw := []byte(`{
		// top-level id is injected separately
		"labels": {"zone": "z1"}, # trailing hash comment
		"storage": {"data_dir": "/var/lib/graphd"} // storage sub-doc
	}`)

	c, err := Parse(raw, "storage-0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.ID != "storage-0" {
		t.Fatalf("ID = %q, want storage-0", c.ID)
	}
	if c.Labels["id"] != "storage-0" {
		t.Fatalf("Labels[id] = %q, want storage-0", c.Labels["id"])
	}
	if c.Labels["zone"] != "z1" {
		t.Fatalf("Labels[zone] = %q, want z1", c.Labels["zone"])
	}

	sc, err := c.DecodeStorage()
	if err != nil {
		t.Fatalf("DecodeStorage: %v", err)
	}
	if sc.DataDir != "/var/lib/graphd" {
		t.Fatalf("DataDir = %q, want /var/lib/graphd", sc.DataDir)
	}
	if sc.PartitionCount != 1 {
		t.Fatalf("PartitionCount default = %d, want 1", sc.PartitionCount)
	}
}

func TestStripLineCommentPreservesHashInsideString(t *testing.T) {
	line := `"value": "a#b//c"`
	got := stripLineCommentFromLine(line)
	if got != line {
		t.Fatalf("stripLineCommentFromLine modified a string literal: got %q, want %q", got, line)
	}
}

func TestDecodeSnapshotDefaults(t *testing.T) {
	c, err := Parse([]byte(`{}`), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sn, err := c.DecodeSnapshot()
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if sn.Dir != "./snapshots" {
		t.Fatalf("Dir default = %q, want ./snapshots", sn.Dir)
	}
}

func TestServiceAddrs(t *testing.T) {
	c, err := Parse([]byte(`{"services": {"meta0": "10.0.0.1:9559", "meta1": "10.0.0.2:9559"}}`), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	addrs, err := c.ServiceAddrs()
	if err != nil {
		t.Fatalf("ServiceAddrs: %v", err)
	}
	if len(addrs) != 2 || addrs["meta0"] != "10.0.0.1:9559" {
		t.Fatalf("ServiceAddrs = %+v", addrs)
	}
}
