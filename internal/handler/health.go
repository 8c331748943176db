package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/worker"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the ANAF breaker state and
// dead letter queue sizes; never exposes credentials or internals.
func Health(db *gorm.DB, rdb *redis.Client, anaf *infra.ANAFClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		dlq := gin.H{}
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			for _, q := range []string{worker.QueueEFactura, worker.QueueEmail} {
				if n, err := worker.DLQLength(ctx, rdb, q); err == nil {
					dlq[q] = n
				}
			}
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
			"dlq":   dlq,
		}
		if anaf != nil {
			body["anaf"] = gin.H{"circuit": anaf.BreakerState().String(), "mock": anaf.Mock()}
		}
		c.JSON(status, body)
	}
}
