package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"

	"github.com/foliolib/folio/pkg/api"
	"github.com/foliolib/folio/pkg/config"
	"github.com/foliolib/folio/pkg/database"
	"github.com/foliolib/folio/pkg/errcodes"
	"github.com/foliolib/folio/pkg/opds"
)

// New assembles the HTTP server: OPDS feeds, the JSON API, and the health
// endpoint, behind request logging and panic recovery.
func New(cfg *config.Config, db *database.DB) (*http.Server, error) {
	e := echo.New()

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	opds.RegisterRoutes(e, db)
	api.RegisterRoutes(e, db)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	return errcodes.NotFound("Route")
}
