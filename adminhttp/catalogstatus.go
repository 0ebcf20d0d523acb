package adminhttp

import "github.com/graphkv/graphd/meta/catalog"

// CatalogStatusSource adapts a meta/catalog.Catalog to StatusSource
// without adminhttp importing meta/catalog's write path — it only ever
// reads a View, the same read-only handle every other consumer of the
// catalog uses (§5 "many readers, single writer... copy-on-write").
type CatalogStatusSource struct {
	Catalog *catalog.Catalog
}

// HostStatuses implements StatusSource.
func (s *CatalogStatusSource) HostStatuses() []HostStatus {
	hosts := s.Catalog.Snapshot().Hosts()
	out := make([]HostStatus, 0, len(hosts))
	for _, h := range hosts {
		status := "down"
		if h.Online {
			status = "up"
		}
		out = append(out, HostStatus{Addr: h.Addr, Status: status})
	}
	return out
}
