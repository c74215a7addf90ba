package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthController(db *gorm.DB, redisClient *redis.Client) *HealthController {
	return &HealthController{db: db, redis: redisClient}
}

// Check godoc
// @Summary Liveness and dependency health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (ctrl *HealthController) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	result := gin.H{"status": "ok"}

	sqlDB, err := ctrl.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		result["database"] = "down"
		result["status"] = "degraded"
		status = http.StatusServiceUnavailable
	} else {
		result["database"] = "up"
	}

	if ctrl.redis != nil {
		if err := ctrl.redis.Ping(ctx).Err(); err != nil {
			result["redis"] = "down"
			result["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			result["redis"] = "up"
		}
	}

	c.JSON(status, result)
}
