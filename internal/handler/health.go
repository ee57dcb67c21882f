package handler

import (
	"context"
	"net/http"
	"time"

	"nakl/internal/infra"
	"nakl/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// Redis and the ledger breaker are reported but only the database decides
// the status code: the API works without the queue.
func Health(db *gorm.DB, rdb *redis.Client, ledgerCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		dead := gin.H{}
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			} else {
				for _, q := range []string{worker.QueueLedger, worker.QueueEmail} {
					if n, err := worker.DeadCount(ctx, rdb, q); err == nil {
						dead[q] = n
					}
				}
			}
		}

		ledger := "unknown"
		if ledgerCB != nil {
			ledger = ledgerCB.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":        status == http.StatusOK,
			"db":        dbStatus,
			"redis":     redisStatus,
			"ledger":    ledger,
			"dead_jobs": dead,
		})
	}
}
