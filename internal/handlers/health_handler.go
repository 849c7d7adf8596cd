package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/slotwise/reservation-engine/internal/database"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

// HealthHandler exposes liveness/readiness/health endpoints for the
// process's own dependencies.
type HealthHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *logger.Logger
}

func NewHealthHandler(db *gorm.DB, redis *redis.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, logger: log}
}

type checkResult struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration"`
}

var startTime = time.Now()

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := map[string]checkResult{
		"database": h.checkDatabase(),
		"redis":    h.checkRedis(),
	}

	status := "healthy"
	for _, r := range checks {
		if r.Status != "healthy" {
			status = "unhealthy"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// Readiness handles GET /health/ready.
func (h *HealthHandler) Readiness(c *gin.Context) {
	dbCheck := h.checkDatabase()
	ready := dbCheck.Status == "healthy"

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"ready":     ready,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    gin.H{"database": dbCheck},
	})
}

// Liveness handles GET /health/live. If the process can respond at all
// it is alive; it does not probe dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alive":  true,
		"uptime": time.Since(startTime).String(),
	})
}

func (h *HealthHandler) checkDatabase() checkResult {
	start := time.Now()
	if err := database.HealthCheck(h.db, nil); err != nil {
		h.logger.Error("database health check failed", "error", err)
		return checkResult{Status: "unhealthy", Message: err.Error(), Duration: time.Since(start).String()}
	}
	return checkResult{Status: "healthy", Duration: time.Since(start).String()}
}

func (h *HealthHandler) checkRedis() checkResult {
	if h.redis == nil {
		return checkResult{Status: "healthy", Message: "not configured", Duration: "0s"}
	}
	start := time.Now()
	if err := database.HealthCheck(nil, h.redis); err != nil {
		h.logger.Error("redis health check failed", "error", err)
		return checkResult{Status: "unhealthy", Message: err.Error(), Duration: time.Since(start).String()}
	}
	return checkResult{Status: "healthy", Duration: time.Since(start).String()}
}

// Version reports basic build/runtime info.
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   "reservation-engine",
		"goVersion": runtime.Version(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
