// Package httpapi wires the zip-stream frontend: a reverse proxy to the
// upstream service that takes over and streams a zip archive whenever the
// upstream marks its response as a manifest.
package httpapi

import (
	"io"
	"net/http"

	"zipstream/internal/blobstore"
	"zipstream/internal/streamhttp"
	"zipstream/internal/upstreamclient"

	"github.com/labstack/echo/v4"
)

// Handler holds the dependencies behind every route.
type Handler struct {
	upstream *upstreamclient.Client
	blobs    blobstore.Source
}

// NewHandler builds a Handler.
func NewHandler(upstream *upstreamclient.Client, blobs blobstore.Source) *Handler {
	return &Handler{upstream: upstream, blobs: blobs}
}

// Proxy forwards the inbound request to the upstream. If the upstream
// marks its response as a manifest, the response body is planned and
// streamed as a zip archive; otherwise the upstream response is relayed
// to the client unmodified, status code included.
func (h *Handler) Proxy(c echo.Context) error {
	resp, err := h.upstream.Forward(c.Request().Context(), c.Request())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream request failed")
	}
	defer resp.Body.Close()

	if !upstreamclient.IsManifestResponse(resp) {
		return relay(c, resp)
	}
	if m := c.Request().Method; m != http.MethodGet && m != http.MethodHead {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "zip-stream responses accept only GET and HEAD")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "reading upstream manifest failed")
	}
	plan, etag, err := h.upstream.PlanManifest(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "invalid manifest from upstream")
	}

	err = streamhttp.ServeArchive(c, plan, etag, h.blobs)
	h.upstream.ForgetPlan(etag)
	return err
}

// relay copies an upstream response to the client verbatim.
func relay(c echo.Context, resp *http.Response) error {
	header := c.Response().Header()
	for k, values := range resp.Header {
		for _, v := range values {
			header.Add(k, v)
		}
	}
	c.Response().WriteHeader(resp.StatusCode)
	_, err := io.Copy(c.Response(), resp.Body)
	return err
}
