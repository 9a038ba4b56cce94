package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is a JSON view of pgxpool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func poolStats(pool *pgxpool.Pool) PoolStats {
	stat := pool.Stat()
	return PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// SchemaHealth summarises migration state.
type SchemaHealth struct {
	Applied int      `json:"applied"`
	Pending []string `json:"pending,omitempty"`
}

// Health is the body of the database health endpoint.
type Health struct {
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
	Pool   PoolStats     `json:"pool"`
	Schema *SchemaHealth `json:"schema,omitempty"`
}

// Evaluate folds a ping result and migration statuses into a Health and the
// HTTP status to serve it with. Pending migrations mark the database
// "degraded": snapshot queries may reference missing tables.
func Evaluate(pingErr error, stats PoolStats, statuses []MigrationStatus, statusErr error) (int, Health) {
	h := Health{Status: "healthy", Pool: stats}
	if pingErr != nil {
		h.Status = "unhealthy"
		h.Error = pingErr.Error()
		return http.StatusServiceUnavailable, h
	}
	if statusErr != nil {
		h.Status = "degraded"
		h.Error = statusErr.Error()
		return http.StatusServiceUnavailable, h
	}
	if statuses == nil {
		return http.StatusOK, h
	}

	schema := &SchemaHealth{}
	for _, s := range statuses {
		if s.Applied {
			schema.Applied++
		} else {
			schema.Pending = append(schema.Pending, s.Name)
		}
	}
	h.Schema = schema
	if len(schema.Pending) > 0 {
		h.Status = "degraded"
		return http.StatusServiceUnavailable, h
	}
	return http.StatusOK, h
}

// HealthHandler pings the database and, when m is non-nil, checks for
// pending migrations.
func HealthHandler(pool *pgxpool.Pool, m *Migrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		pingErr := pool.Ping(ctx)
		var (
			statuses  []MigrationStatus
			statusErr error
		)
		if pingErr == nil && m != nil {
			statuses, statusErr = m.Status(ctx)
		}

		code, h := Evaluate(pingErr, poolStats(pool), statuses, statusErr)
		return c.JSON(code, h)
	}
}
