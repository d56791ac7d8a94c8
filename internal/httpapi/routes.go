package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (a *API) registerRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"ok":        true,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Everything else is forwarded to the upstream; it is either relayed
	// unmodified or taken over and streamed as a zip archive.
	e.Any("/", a.handler.Proxy)
	e.Any("/*", a.handler.Proxy)
}
