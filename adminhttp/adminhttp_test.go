package adminhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeStatusSource struct{ hosts []HostStatus }

func (f *fakeStatusSource) HostStatuses() []HostStatus { return f.hosts }

func newTestHandler(dl *Downloader, hosts []HostStatus) *Handler {
	return NewHandler(&fakeStatusSource{hosts: hosts}, dl, nil)
}

func TestStatusPlainText(t *testing.T) {
	h := newTestHandler(nil, nil)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/status?daemon=status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "status=running") {
		t.Fatalf("body = %q, want status=running", rec.Body.String())
	}
}

func TestStatusJSON(t *testing.T) {
	h := newTestHandler(nil, []HostStatus{{Addr: "h1:9000", Status: "up"}})
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/status?returnjson", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "h1:9000") {
		t.Fatalf("body = %q, want h1:9000", rec.Body.String())
	}
}

func TestDownloadSuccess(t *testing.T) {
	var ranURL, dispatchedHost string
	dl := &Downloader{
		HadoopHome: "/opt/hadoop",
		Run: func(ctx context.Context, hadoopHome, url, localPath string) error {
			ranURL = url
			return nil
		},
		Dispatch: func(ctx context.Context, host, url string, port int, path, localPath string, spaceID int32) error {
			dispatchedHost = host
			return nil
		},
	}
	h := newTestHandler(dl, nil)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/download?url=hdfs://x/y&port=9000&path=/p&localPath=/l&spaceID=1&host=store1:9000", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ranURL != "hdfs://x/y" || dispatchedHost != "store1:9000" {
		t.Fatalf("ranURL=%q dispatchedHost=%q", ranURL, dispatchedHost)
	}
}

func TestDownloadFailureReturns404(t *testing.T) {
	dl := &Downloader{
		Run: func(ctx context.Context, hadoopHome, url, localPath string) error {
			return errDownload
		},
	}
	h := newTestHandler(dl, nil)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/download?url=hdfs://x/y", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadMissingURLReturns404(t *testing.T) {
	h := newTestHandler(&Downloader{}, nil)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

var errDownload = &downloadError{"stage failed"}

type downloadError struct{ msg string }

func (e *downloadError) Error() string { return e.msg }
