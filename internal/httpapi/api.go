package httpapi

import (
	"net/http"

	"zipstream/internal/blobstore"
	"zipstream/internal/config"
	"zipstream/internal/httpapi/middlewares"
	"zipstream/internal/upstreamclient"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// API assembles the echo server for the zip-stream frontend.
type API struct {
	cfg     config.Config
	handler *Handler
}

// New builds an API backed by upstream for manifest retrieval and blobs
// for archive member bytes.
func New(cfg config.Config, upstream *upstreamclient.Client, blobs blobstore.Source) *API {
	return &API{
		cfg:     cfg,
		handler: NewHandler(upstream, blobs),
	}
}

func (a *API) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: a.cfg.CORSAllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderAccept,
			echo.HeaderContentType,
			echo.HeaderAuthorization,
			"Range",
			"If-Range",
		},
		ExposeHeaders: []string{
			"RateLimit-Limit",
			"RateLimit-Remaining",
			"RateLimit-Reset",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
			"Accept-Ranges",
			"Content-Range",
			"Content-Disposition",
		},
		MaxAge: 600,
	}))
	e.Use(middlewares.NewRateLimitMiddleware(a.cfg.RateLimitWindow, a.cfg.RateLimitPerIP))

	a.registerRoutes(e)
	return e
}
