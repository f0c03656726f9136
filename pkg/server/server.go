// Package server exposes a Predictor over HTTP.
//
// Routes follow the hosted model container contract: GET /ping for health,
// POST /invocations for predictions. POST /predict is the same handler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/inference"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/logging"
	"github.com/labstack/echo/v4"
)

// Build creates the echo instance serving p.
func Build(p *inference.Predictor, loglevel string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger = logging.New("serve", loglevel)

	predict := inference.Handler(p)
	e.POST("/predict", predict, LogHandlerFunc)
	e.POST("/invocations", predict, LogHandlerFunc)
	e.GET("/ping", func(c echo.Context) error {
		meta := p.Meta()
		return c.JSON(http.StatusOK, map[string]any{
			"status":     "healthy",
			"model_id":   meta.ID,
			"created_at": meta.CreatedAt,
		})
	})
	return e
}

func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		meth := c.Request().Method
		path := c.Request().URL
		begin := time.Now()
		c.Logger().Debugf("< request %s %s", meth, path)

		err := next(c)

		c.Logger().Infof(
			"> response status = %d (for %s %s) in %v / error = %+v",
			c.Response().Status, meth, path, time.Since(begin), err,
		)
		return err
	}
}

type server struct {
	gracefulPeriod time.Duration
}

type Option func(*server)

// WithGracefulPeriod bounds the wait for in-flight requests on shutdown.
//
// It is 30 seconds by default.
func WithGracefulPeriod(d time.Duration) Option {
	return func(s *server) { s.gracefulPeriod = d }
}

// Start serves e on port until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, e *echo.Echo, port int, opts ...Option) error {
	s := server{gracefulPeriod: 30 * time.Second}
	for _, o := range opts {
		o(&s)
	}

	stopped := make(chan error, 1)
	go func() {
		stopped <- e.Start(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-stopped:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errtypes.IO(err, "serve on port %d", port)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.gracefulPeriod)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		e.Close() // close forcefully
		return err
	}
	if err := <-stopped; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
