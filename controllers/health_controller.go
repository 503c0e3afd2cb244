package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports database reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db Pinger
}

func NewHealthController(db Pinger) *HealthController {
	return &HealthController{db: db}
}

// Health always answers 200 while the process is up; the database field
// tells whether MongoDB is reachable.
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	database := "connected"
	if hc.db == nil || hc.db.Ping(ctx) != nil {
		database = "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "API is healthy",
		"database": database,
	})
}
