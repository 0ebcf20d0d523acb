// Package config implements graphd configuration file parsing.
//
// Configuration files are JSON documents that additionally accept "//" and
// "#" line comments (spec.md §6: "recognized options include line comments
// and nested objects for sub-configurations"). No library in the retrieved
// corpus implements this specific dialect, so the comment strip is a small
// hand-rolled scanner; everything past that point is plain encoding/json,
// the same as the teacher's config.ParseConfig.
package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
)

// Config is the top-level configuration document a graphd process is
// started with. Each sub-document is kept as raw JSON and parsed lazily by
// the component that owns it, mirroring config.Config's use of
// json.RawMessage for Bundle/Discovery/Status in the teacher.
type Config struct {
	ID       string            `json:"id"`
	Labels   map[string]string `json:"labels"`
	Services json.RawMessage   `json:"services"`
	Storage  json.RawMessage   `json:"storage"`
	Snapshot json.RawMessage   `json:"snapshot"`
	Logging  json.RawMessage   `json:"logging"`
	Metrics  json.RawMessage   `json:"metrics"`
}

// StorageConfig is the sub-document consumed by the kv package.
type StorageConfig struct {
	DataDir        string `json:"data_dir"`
	PartitionCount int    `json:"partition_count"`
	CacheCapacity  int    `json:"cache_capacity"`
	CacheShardBits uint   `json:"cache_shard_bits"`
	CompactEvery   string `json:"compact_every"`
}

// SnapshotConfig is the sub-document consumed by meta/snapshot.
type SnapshotConfig struct {
	Dir string `json:"dir"`
}

// LoggingConfig is the sub-document consumed by internal/log.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Parse decodes raw into a Config, stripping "//" and "#" line comments
// first. id, if non-empty, is recorded as both Config.ID and
// Labels["id"], the way the teacher's ParseConfig stamps the process id
// into Labels.
func Parse(raw []byte, id string) (*Config, error) {
	stripped := stripLineComments(raw)
	var c Config
	if err := json.Unmarshal(stripped, &c); err != nil {
		return nil, err
	}
	if c.Labels == nil {
		c.Labels = map[string]string{}
	}
	id = strings.TrimSpace(id)
	if id != "" {
		c.ID = id
		c.Labels["id"] = id
	}
	return &c, nil
}

// stripLineComments removes "//" and "#" to end-of-line, except inside
// JSON string literals. This is deliberately conservative: it only tracks
// whether it is inside a double-quoted string (honoring backslash
// escapes), which is sufficient for the well-formed configuration files
// graphd loads.
func stripLineComments(raw []byte) []byte {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		out.WriteString(stripLineCommentFromLine(scanner.Text()))
		out.WriteByte('\n')
	}
	return out.Bytes()
}

func stripLineCommentFromLine(line string) string {
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inString:
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '#':
			return line[:i]
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}

// DecodeStorage parses the Storage sub-document, filling in defaults.
func (c *Config) DecodeStorage() (StorageConfig, error) {
	sc := StorageConfig{
		DataDir:        "./data",
		PartitionCount: 1,
		CacheCapacity:  16 * 1024,
		CacheShardBits: 4,
	}
	if len(c.Storage) == 0 {
		return sc, nil
	}
	if err := json.Unmarshal(c.Storage, &sc); err != nil {
		return sc, err
	}
	return sc, nil
}

// DecodeSnapshot parses the Snapshot sub-document, filling in defaults.
func (c *Config) DecodeSnapshot() (SnapshotConfig, error) {
	sn := SnapshotConfig{Dir: "./snapshots"}
	if len(c.Snapshot) == 0 {
		return sn, nil
	}
	if err := json.Unmarshal(c.Snapshot, &sn); err != nil {
		return sn, err
	}
	return sn, nil
}

// DecodeLogging parses the Logging sub-document, filling in defaults.
func (c *Config) DecodeLogging() (LoggingConfig, error) {
	lc := LoggingConfig{Level: "info", Format: "text"}
	if len(c.Logging) == 0 {
		return lc, nil
	}
	if err := json.Unmarshal(c.Logging, &lc); err != nil {
		return lc, err
	}
	return lc, nil
}

// ServiceAddrs parses the flat "services" object ({"name": "host:port"}),
// the address list a meta client uses to reach its peers.
func (c *Config) ServiceAddrs() (map[string]string, error) {
	addrs := map[string]string{}
	if len(c.Services) == 0 {
		return addrs, nil
	}
	if err := json.Unmarshal(c.Services, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}
