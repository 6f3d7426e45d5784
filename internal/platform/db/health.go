package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolSnapshot is a point-in-time view of the pgx pool, reported by the
// health endpoint so operators can spot connection exhaustion before
// bookings start timing out.
type PoolSnapshot struct {
	Total    int32  `json:"total"`
	Idle     int32  `json:"idle"`
	Acquired int32  `json:"acquired"`
	Max      int32  `json:"max"`
	WaitTime string `json:"wait_time"`
}

// Snapshot captures the pool's current connection counts.
func Snapshot(pool *pgxpool.Pool) PoolSnapshot {
	st := pool.Stat()
	return PoolSnapshot{
		Total:    st.TotalConns(),
		Idle:     st.IdleConns(),
		Acquired: st.AcquiredConns(),
		Max:      st.MaxConns(),
		WaitTime: st.AcquireDuration().String(),
	}
}

// Saturated reports whether every pool slot is checked out.
func (p PoolSnapshot) Saturated() bool {
	return p.Max > 0 && p.Acquired >= p.Max
}

// HealthHandler serves the database readiness probe: a bounded ping plus
// the pool snapshot.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		snap := Snapshot(pool)
		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"database": "unreachable",
				"error":    err.Error(),
				"pool":     snap,
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"database": "ok",
			"pool":     snap,
		})
	}
}
