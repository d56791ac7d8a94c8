package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"zipstream/internal/upstreamclient"

	"github.com/labstack/echo/v4"
)

type fakeBlobs struct {
	data map[string][]byte
}

func (f *fakeBlobs) FetchRange(ctx context.Context, key string, start, end uint64) (io.ReadCloser, error) {
	b := f.data[key]
	if end > uint64(len(b)) {
		end = uint64(len(b))
	}
	return io.NopCloser(bytes.NewReader(b[start:end])), nil
}

func TestHandlerProxy_RelaysNonManifestResponseUnmodified(t *testing.T) {
	t.Parallel()

	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}))
	defer upstreamSrv.Close()

	client := upstreamclient.New(upstreamSrv.URL, nil)
	h := NewHandler(client, &fakeBlobs{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/skills/foo", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Proxy(c); err != nil {
		t.Fatalf("Proxy: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if rec.Header().Get("X-Upstream") != "yes" {
		t.Fatalf("relayed header missing")
	}
	if rec.Body.String() != "not found" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestHandlerProxy_TakesOverManifestResponse(t *testing.T) {
	t.Parallel()

	manifestBody := []byte(`{"filename":"bundle.zip","entries":[{"archive_name":"a.txt","length":3,"source":"a","last_modified":"2024-01-01T00:00:00Z"}]}`)
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(upstreamclient.ManifestHeader, "1")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(manifestBody)
	}))
	defer upstreamSrv.Close()

	client := upstreamclient.New(upstreamSrv.URL, nil)
	h := NewHandler(client, &fakeBlobs{data: map[string][]byte{"a": []byte("xyz")}})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Proxy(c); err != nil {
		t.Fatalf("Proxy: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Accept-Ranges") != "bytes" {
		t.Fatalf("expected zip-stream headers, got %v", rec.Header())
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected a non-empty streamed zip body")
	}
}
