package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ykarpov/newshound/app/database"
	"github.com/ykarpov/newshound/app/scraper"
)

// StatsProvider exposes the orchestrator's cycle statistics.
type StatsProvider interface {
	GetStats() scraper.Stats
}

type Handler struct {
	store        database.Store
	orchestrator StatsProvider
	sourceCount  int
	version      string
}

func NewHandler(store database.Store, orchestrator StatsProvider, sourceCount int, version string) *Handler {
	return &Handler{
		store:        store,
		orchestrator: orchestrator,
		sourceCount:  sourceCount,
		version:      version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   h.sourceCount,
	}

	status := http.StatusOK

	if count, err := h.store.CountArticles(c.Request.Context()); err == nil {
		health["articles"] = count
	} else {
		health["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	if h.orchestrator.GetStats().State == scraper.StateStopped {
		health["status"] = "stopped"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := h.orchestrator.GetStats()

	payload := gin.H{
		"state":                stats.State,
		"cycle_count":          stats.CycleCount,
		"total_articles_added": stats.TotalArticlesAdded,
		"consecutive_errors":   stats.ConsecutiveErrors,
	}

	if stats.LastCycleStartedAt != nil {
		payload["last_cycle_started_at"] = stats.LastCycleStartedAt.Format(time.RFC3339)
	}
	if stats.LastSuccessAt != nil {
		payload["last_success_at"] = stats.LastSuccessAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, payload)
}
