package upstreamclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestForward_ForwardsAllowlistedHeadersAndMarker(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotHeaders http.Header
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	c := New(upstream.URL, nil)

	inbound := httptest.NewRequest(http.MethodGet, "/skills/foo?version=1.0.0", nil)
	inbound.Header.Set("Authorization", "Bearer abc")
	inbound.Header.Set("Cookie", "session=xyz")
	inbound.Header.Set("X-Not-Forwarded", "secret")

	resp, err := c.Forward(inbound.Context(), inbound)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	defer resp.Body.Close()

	if gotPath != "/skills/foo?version=1.0.0" {
		t.Fatalf("upstream saw path %q", gotPath)
	}
	if gotHeaders.Get("Authorization") != "Bearer abc" {
		t.Fatalf("Authorization not forwarded: %v", gotHeaders)
	}
	if gotHeaders.Get("Cookie") != "session=xyz" {
		t.Fatalf("Cookie not forwarded: %v", gotHeaders)
	}
	if gotHeaders.Get("X-Not-Forwarded") != "" {
		t.Fatalf("non-allowlisted header leaked through: %v", gotHeaders)
	}
	if gotHeaders.Get(MarkerHeader) == "" {
		t.Fatalf("marker header missing")
	}
}

func TestIsManifestResponse(t *testing.T) {
	t.Parallel()

	manifestResp := &http.Response{Header: http.Header{ManifestHeader: []string{"1"}}}
	if !IsManifestResponse(manifestResp) {
		t.Fatalf("expected manifest response to be recognized")
	}

	plain := &http.Response{Header: http.Header{}}
	if IsManifestResponse(plain) {
		t.Fatalf("expected plain response to not be recognized as a manifest")
	}
}

func TestPlanManifest_CachesByContent(t *testing.T) {
	t.Parallel()

	c := New("http://upstream.invalid", nil)
	body := []byte(`{"filename":"x.zip","entries":[]}`)

	p1, etag1, err := c.PlanManifest(body)
	if err != nil {
		t.Fatalf("PlanManifest: %v", err)
	}
	p2, etag2, err := c.PlanManifest(body)
	if err != nil {
		t.Fatalf("PlanManifest: %v", err)
	}

	if p1 != p2 {
		t.Fatalf("expected the same cached *Plan for identical manifest bytes")
	}
	if etag1 != etag2 {
		t.Fatalf("etag1 = %q, etag2 = %q", etag1, etag2)
	}

	c.ForgetPlan(etag1)
	p3, _, err := c.PlanManifest(body)
	if err != nil {
		t.Fatalf("PlanManifest after ForgetPlan: %v", err)
	}
	if p3 == p1 {
		t.Fatalf("expected a freshly built plan after ForgetPlan evicted the cache entry")
	}
}

func TestPlanManifest_RejectsInvalidManifest(t *testing.T) {
	t.Parallel()

	c := New("http://upstream.invalid", nil)
	if _, _, err := c.PlanManifest([]byte(`{}`)); err == nil {
		t.Fatalf("expected error for a manifest missing filename")
	}
}

func TestNew_TrimsTrailingSlashFromBaseURL(t *testing.T) {
	t.Parallel()

	c := New("http://upstream.invalid/", nil)
	if c.baseURL != "http://upstream.invalid" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
}

