package controllers

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/pkg/ctx"
	"github.com/anfisaforfriends/anfisa/pkg/database"
)

type HealthController struct {
	db *gorm.DB
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

// Check pings the database.
func (h *HealthController) Check(c *ctx.Context) {
	start := time.Now()
	if err := database.Ping(c.Context(), h.db); err != nil {
		c.Log().Warn("health: database unreachable", "error", err)
		c.JSON(http.StatusServiceUnavailable, map[string]string{"database": "down"})
		return
	}
	c.Success(map[string]string{"database": "up", "latency": time.Since(start).String()})
}
