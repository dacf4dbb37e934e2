// Package httpapi exposes the photo catalog and upload coordination over
// HTTP. Route handlers stay thin: they parse and validate transport shapes
// and delegate to the services, which own all catalog and upload semantics.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/morlov/photofeed/internal/logging"
	"github.com/morlov/photofeed/internal/server/services"
)

type HTTPServer struct {
	address string
	upload  *services.UploadService
	catalog *services.CatalogService
	logger  logging.Logger
}

func NewHTTPServer(address string, logger logging.Logger, upload *services.UploadService, catalog *services.CatalogService) *HTTPServer {
	return &HTTPServer{
		address: address,
		upload:  upload,
		catalog: catalog,
		logger:  logger.With("module", "http_server"),
	}
}

// Router assembles the gin engine with middleware and routes. Split out from
// Run so tests can drive the full stack through httptest.
func (s *HTTPServer) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthcheck", s.healthcheckHandler)
	router.GET("/photos", s.photosHandler)

	authed := router.Group("/", s.authRequired())
	authed.POST("/upload", s.uploadHandler)
	authed.GET("/my/photos", s.myPhotosHandler)

	return router
}

func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
