package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	}
}

// Ready pings Mongo and, when configured, Redis.
func Ready(client *mongo.Client, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := gin.H{"mongo": "ok", "redis": "disabled"}
		healthy := true

		if client == nil {
			checks["mongo"] = "unavailable"
			healthy = false
		} else if err := client.Ping(ctx, nil); err != nil {
			checks["mongo"] = err.Error()
			healthy = false
		}

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"success": healthy, "checks": checks})
	}
}
