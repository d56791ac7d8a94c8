// Package upstreamclient talks to the upstream service this frontend
// proxies: it forwards inbound requests, recognizes responses that carry
// a manifest to stream as a zip, and caches the resulting plans.
package upstreamclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"zipstream/internal/zipengine"
)

// ManifestHeader marks a response from the upstream as carrying a
// manifest to plan and stream, rather than an ordinary proxied body.
const ManifestHeader = "X-Zip-Stream"

// MarkerHeader is set on every request this service forwards to the
// upstream, letting the upstream distinguish manifest-producing requests
// from ordinary proxied ones.
const MarkerHeader = "X-Via-Zip-Stream"

// KeepHeaders is the fixed allowlist of inbound request headers forwarded
// to the upstream.
var KeepHeaders = []string{"Authorization", "Cookie", "User-Agent", "Referer"}

// Client forwards requests to the upstream service and, for requests the
// upstream marks as manifest-producing, decodes and plans the manifest.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	planCache map[string]*zipengine.Plan
	fetchOnce singleflight.Group
}

// New builds a Client targeting baseURL, using httpClient for outbound
// requests. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		planCache:  make(map[string]*zipengine.Plan),
	}
}

// Forward builds a request to the upstream for the same method, path, and
// query as req, carrying the allowlisted headers plus MarkerHeader, and
// issues it. The caller owns the response and must close its body.
func (c *Client) Forward(ctx context.Context, req *http.Request) (*http.Response, error) {
	u := c.baseURL + req.URL.RequestURI()
	out, err := http.NewRequestWithContext(ctx, req.Method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	for _, h := range KeepHeaders {
		if v := req.Header.Get(h); v != "" {
			out.Header.Set(h, v)
		}
	}
	out.Header.Set(MarkerHeader, "1")

	return c.httpClient.Do(out)
}

// IsManifestResponse reports whether resp is a manifest to plan and
// stream, rather than a response to relay unmodified.
func IsManifestResponse(resp *http.Response) bool {
	return resp.Header.Get(ManifestHeader) != ""
}

// PlanManifest decodes a manifest body and builds its Plan, deduplicating
// concurrent builds for byte-identical manifests and caching the result
// under the SHA-256 digest of the body until ForgetPlan evicts it (the
// handler evicts each plan once its response finishes, so the cache only
// holds plans for manifests currently being served).
func (c *Client) PlanManifest(body []byte) (*zipengine.Plan, string, error) {
	digest := sha256.Sum256(body)
	cacheKey := hex.EncodeToString(digest[:])
	etag := `"` + cacheKey + `"`

	c.mu.Lock()
	if p, ok := c.planCache[cacheKey]; ok {
		c.mu.Unlock()
		return p, etag, nil
	}
	c.mu.Unlock()

	v, err, _ := c.fetchOnce.Do(cacheKey, func() (any, error) {
		m, err := zipengine.ParseManifest(strings.NewReader(string(body)))
		if err != nil {
			return nil, err
		}
		plan, err := zipengine.BuildPlan(m)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.planCache[cacheKey] = plan
		c.mu.Unlock()
		return plan, nil
	})
	if err != nil {
		return nil, "", err
	}
	return v.(*zipengine.Plan), etag, nil
}

// ForgetPlan evicts a cached plan once its response has finished
// streaming, keeping the cache from growing unbounded across the life of
// the process.
func (c *Client) ForgetPlan(etag string) {
	cacheKey := strings.Trim(etag, `"`)
	c.mu.Lock()
	delete(c.planCache, cacheKey)
	c.mu.Unlock()
}

// DecodeManifestJSON is a convenience for callers that already have the
// raw JSON body and just want structural validation without planning.
func DecodeManifestJSON(body []byte) (*zipengine.Manifest, error) {
	return zipengine.ParseManifest(strings.NewReader(string(body)))
}
