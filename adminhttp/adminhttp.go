// Package adminhttp implements the meta service's HTTP admin surface
// of spec.md §6: a `/status` readiness probe and a `/download` bulk
// ingest dispatcher that stages SST files via an external HDFS client
// and passes one download command to the storage host named by the
// request's `host` query parameter; it does not fan the command out to
// every storage node. Modeled
// on plugins/status/plugin.go's per-host status aggregation (a map of
// named objects reported back as one JSON document) and
// plugins/rest.Client's outbound-request shape, trimmed to the plain
// net/http client this module's dependency set actually carries (see
// DESIGN.md, transport package entry).
package adminhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"time"

	"github.com/graphkv/graphd/internal/log"
)

// HostStatus is one storage host's reported readiness, returned by the
// JSON form of /status (§6 "optional returnjson").
type HostStatus struct {
	Addr   string `json:"addr"`
	Status string `json:"status"`
}

// StatusSource reports the current cluster membership and each host's
// liveness, letting /status answer both the plain-text and JSON forms
// without adminhttp depending on meta/catalog directly.
type StatusSource interface {
	HostStatuses() []HostStatus
}

// Downloader shells out to a configured HDFS client to stage SST files
// for one partition, mirroring §6's "ingest coordinator that shells out
// to a configured HDFS client." HadoopHome is read from the HADOOP_HOME
// environment variable by the caller and passed in, per §6
// "Environment. The services honor HADOOP_HOME for the ingest path."
type Downloader struct {
	HadoopHome string
	// Run executes the download command; overridable in tests to avoid
	// actually shelling out to a real hdfs client binary.
	Run func(ctx context.Context, hadoopHome, url, localPath string) error
	// Dispatch POSTs the download command to one storage host; overridable
	// in tests for the same reason.
	Dispatch func(ctx context.Context, host, url string, port int, path, localPath string, spaceID int32) error
}

func defaultRun(ctx context.Context, hadoopHome, url, localPath string) error {
	cmd := exec.CommandContext(ctx, hadoopHome+"/bin/hadoop", "fs", "-get", url, localPath)
	return cmd.Run()
}

// NewDownloader returns a Downloader with its Run hook wired to the
// real `$HADOOP_HOME/bin/hadoop fs -get` invocation; Dispatch must
// still be set by the caller (it needs a way to reach every storage
// host, which is deployment-specific).
func NewDownloader(hadoopHome string) *Downloader {
	return &Downloader{HadoopHome: hadoopHome, Run: defaultRun}
}

// Handler serves /status and /download.
type Handler struct {
	Status     StatusSource
	Downloader *Downloader
	Log        log.Logger
}

// NewHandler returns a Handler; logger may be nil to use log.Global().
func NewHandler(status StatusSource, dl *Downloader, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.Global()
	}
	return &Handler{Status: status, Downloader: dl, Log: logger}
}

// Register mounts /status and /download on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /status", h.handleStatus)
	mux.HandleFunc("GET /download", h.handleDownload)
}

// handleStatus implements §6's /status readiness probe: `daemon=status`
// with the plain-text `status=running` response, or `returnjson` for a
// JSON array of per-host statuses.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if _, wantsJSON := q["returnjson"]; wantsJSON {
		var statuses []HostStatus
		if h.Status != nil {
			statuses = h.Status.HostStatuses()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(statuses)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "status=running")
}

// handleDownload implements §6's /download ingest dispatch: `url`,
// `port`, `path`, `localPath`, `spaceID` query parameters; `200` on
// successful dispatch, `404` on failure.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	url := q.Get("url")
	host := q.Get("host")
	path := q.Get("path")
	localPath := q.Get("localPath")
	spaceID := parseInt32(q.Get("spaceID"))
	port := parseInt(q.Get("port"))

	if url == "" || h.Downloader == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := h.Downloader.Run(ctx, h.Downloader.HadoopHome, url, localPath); err != nil {
		h.Log.WithField("url", url).Warnf("adminhttp: hdfs stage failed: %v", err)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if h.Downloader.Dispatch != nil {
		if err := h.Downloader.Dispatch(ctx, host, url, port, path, localPath, spaceID); err != nil {
			h.Log.WithField("host", host).Warnf("adminhttp: download dispatch failed: %v", err)
			w.WriteHeader(http.StatusNotFound)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func parseInt(s string) int {
	var n int
	_, _ = fmt.Sscanf(s, "%d", &n)
	return n
}

func parseInt32(s string) int32 {
	return int32(parseInt(s))
}
