package streamhttp

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"zipstream/internal/assembler"
	"zipstream/internal/blobstore"
	"zipstream/internal/zipengine"
)

// ServeArchive writes the headers and body for a (possibly partial)
// response streaming plan's archive, following the same Range/If-Range
// contract a static file server would: a Range header is honored only
// when If-Range is absent or matches etag, and an unsatisfiable or
// unsupported (multi-range) Range request falls back to a full 200
// response rather than a 416.
func ServeArchive(c echo.Context, plan *zipengine.Plan, etag string, src blobstore.Source) error {
	req := c.Request()
	total := plan.ContentLength()

	rng := zipengine.Range{Start: 0, End: total}
	partial := false

	if ifRange := req.Header.Get("If-Range"); ifRange == "" || ifRange == etag {
		if hv := req.Header.Get("Range"); hv != "" {
			parsed, satisfiable, err := ParseRange(hv, total)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			if satisfiable {
				rng, partial = parsed, true
			}
		}
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "application/zip")
	h.Set("Accept-Ranges", "bytes")
	h.Set("ETag", etag)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", plan.Filename()))
	h.Set(echo.HeaderContentLength, strconv.FormatUint(rng.Len(), 10))

	status := http.StatusOK
	if partial {
		status = http.StatusPartialContent
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End-1, total))
	}
	c.Response().WriteHeader(status)

	if req.Method == http.MethodHead {
		return nil
	}

	return assembler.Stream(req.Context(), plan, rng, src, c.Response())
}
