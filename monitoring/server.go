package monitoring

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"craft-platform/utils"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// OpsServer is the metrics/health sidecar. It listens on its own port so
// the scrape endpoint never shares the public API surface.
type OpsServer struct {
	srv *http.Server
}

func NewOpsServer(port string, redisClient *redis.Client) *OpsServer {
	e := echo.New()

	promHandler := promhttp.Handler()
	e.GET("/metrics", func(c echo.Context) error {
		promHandler.ServeHTTP(c.Response(), c.Request())
		return nil
	})

	e.GET("/health", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	return &OpsServer{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           e,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until Shutdown is called.
func (s *OpsServer) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("ops server stopped", "error", err)
		}
	}()
	slog.Info("ops server listening", "addr", s.srv.Addr)
}

func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
