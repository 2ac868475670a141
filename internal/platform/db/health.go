package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireDuration string `json:"acquire_duration"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// ReadyCheck is a named dependency probe for the readiness endpoint.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// PingCheck probes the pool.
func PingCheck(pool *pgxpool.Pool) ReadyCheck {
	return ReadyCheck{Name: "postgres", Check: pool.Ping}
}

// ReadyHandler runs every check with a short deadline and reports 503 when
// any of them fails.
func ReadyHandler(checks ...ReadyCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		failures := map[string]string{}
		for _, check := range checks {
			if check.Check == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			err := check.Check(ctx)
			cancel()
			if err != nil {
				failures[check.Name] = err.Error()
			}
		}

		if len(failures) > 0 {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"errors": failures,
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "healthy"})
	}
}

// StatsHandler exposes pool statistics.
func StatsHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, GetPoolStats(pool))
	}
}
