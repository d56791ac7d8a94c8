package streamhttp

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"zipstream/internal/zipengine"
)

type fakeSource struct {
	data map[string][]byte
}

func (f *fakeSource) FetchRange(ctx context.Context, key string, start, end uint64) (io.ReadCloser, error) {
	b := f.data[key]
	if end > uint64(len(b)) {
		end = uint64(len(b))
	}
	return io.NopCloser(bytes.NewReader(b[start:end])), nil
}

func testPlan(t *testing.T) *zipengine.Plan {
	t.Helper()
	lm := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &zipengine.Manifest{
		Filename: "bundle.zip",
		Entries: []zipengine.Entry{
			{ArchiveName: "a.txt", Length: 5, Source: "a", LastModified: lm},
		},
	}
	p, err := zipengine.BuildPlan(m)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	return p
}

func TestServeArchive_FullResponse(t *testing.T) {
	t.Parallel()

	e := echo.New()
	p := testPlan(t)
	src := &fakeSource{data: map[string][]byte{"a": []byte("aaaaa")}}

	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := ServeArchive(c, p, "etag-1", src); err != nil {
		t.Fatalf("ServeArchive: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Accept-Ranges") != "bytes" {
		t.Fatalf("Accept-Ranges = %q", rec.Header().Get("Accept-Ranges"))
	}
	if rec.Header().Get("Content-Length") != strconv.FormatUint(p.ContentLength(), 10) {
		t.Fatalf("Content-Length = %q, want %d", rec.Header().Get("Content-Length"), p.ContentLength())
	}
	if uint64(rec.Body.Len()) != p.ContentLength() {
		t.Fatalf("body length = %d, want %d", rec.Body.Len(), p.ContentLength())
	}
}

func TestServeArchive_SatisfiableRangeReturns206(t *testing.T) {
	t.Parallel()

	e := echo.New()
	p := testPlan(t)
	src := &fakeSource{data: map[string][]byte{"a": []byte("aaaaa")}}

	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	req.Header.Set("Range", "bytes=0-4")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := ServeArchive(c, p, "etag-1", src); err != nil {
		t.Fatalf("ServeArchive: %v", err)
	}

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if rec.Body.Len() != 5 {
		t.Fatalf("body length = %d, want 5", rec.Body.Len())
	}
	if rec.Header().Get("Content-Range") == "" {
		t.Fatalf("missing Content-Range")
	}
}

func TestServeArchive_MismatchedIfRangeServesFull(t *testing.T) {
	t.Parallel()

	e := echo.New()
	p := testPlan(t)
	src := &fakeSource{data: map[string][]byte{"a": []byte("aaaaa")}}

	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	req.Header.Set("Range", "bytes=0-4")
	req.Header.Set("If-Range", "some-other-etag")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := ServeArchive(c, p, "etag-1", src); err != nil {
		t.Fatalf("ServeArchive: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if uint64(rec.Body.Len()) != p.ContentLength() {
		t.Fatalf("body length = %d, want %d", rec.Body.Len(), p.ContentLength())
	}
}

func TestServeArchive_UnsatisfiableRangeServesFullNot416(t *testing.T) {
	t.Parallel()

	e := echo.New()
	p := testPlan(t)
	src := &fakeSource{data: map[string][]byte{"a": []byte("aaaaa")}}

	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	req.Header.Set("Range", "bytes=999999-9999999")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := ServeArchive(c, p, "etag-1", src); err != nil {
		t.Fatalf("ServeArchive: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (not 416)", rec.Code)
	}
	if uint64(rec.Body.Len()) != p.ContentLength() {
		t.Fatalf("body length = %d, want %d", rec.Body.Len(), p.ContentLength())
	}
}

func TestServeArchive_HeadRequestWritesNoBody(t *testing.T) {
	t.Parallel()

	e := echo.New()
	p := testPlan(t)
	src := &fakeSource{data: map[string][]byte{"a": []byte("aaaaa")}}

	req := httptest.NewRequest(http.MethodHead, "/download", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := ServeArchive(c, p, "etag-1", src); err != nil {
		t.Fatalf("ServeArchive: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("HEAD response body length = %d, want 0", rec.Body.Len())
	}
	if rec.Header().Get("Content-Length") != strconv.FormatUint(p.ContentLength(), 10) {
		t.Fatalf("Content-Length = %q, want %d", rec.Header().Get("Content-Length"), p.ContentLength())
	}
}
