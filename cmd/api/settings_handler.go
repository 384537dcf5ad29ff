package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// RuntimeConfig holds runtime-configurable settings
type RuntimeConfig struct {
	PlannerDailyCapacity int `json:"planner_daily_capacity"`
}

var (
	runtimeConfig     RuntimeConfig
	runtimeConfigLock sync.RWMutex
)

// InitRuntimeConfig initializes runtime config from static config
func InitRuntimeConfig(plannerDailyCapacity int) {
	runtimeConfigLock.Lock()
	defer runtimeConfigLock.Unlock()
	runtimeConfig = RuntimeConfig{
		PlannerDailyCapacity: plannerDailyCapacity,
	}
}

// GetRuntimeDailyCapacity returns the default daily capacity used when a
// plan request does not set one
func GetRuntimeDailyCapacity() int {
	runtimeConfigLock.RLock()
	defer runtimeConfigLock.RUnlock()
	return runtimeConfig.PlannerDailyCapacity
}

// UpdatePlannerSettingsRequest represents the request body for updating planner settings
type UpdatePlannerSettingsRequest struct {
	PlannerDailyCapacity int `json:"planner_daily_capacity" binding:"required,min=1,max=1440"`
}

// GetPlannerSettings returns current planner configuration
// GET /api/settings/planner
func GetPlannerSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"planner_daily_capacity": GetRuntimeDailyCapacity(),
	})
}

// UpdatePlannerSettings updates planner configuration at runtime
// PUT /api/settings/planner
func UpdatePlannerSettings(c *gin.Context) {
	var req UpdatePlannerSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runtimeConfigLock.Lock()
	runtimeConfig.PlannerDailyCapacity = req.PlannerDailyCapacity
	runtimeConfigLock.Unlock()

	log.Printf("[Settings] Planner daily capacity set to %d minutes", req.PlannerDailyCapacity)
	c.JSON(http.StatusOK, gin.H{
		"message":                "Planner settings updated successfully",
		"planner_daily_capacity": req.PlannerDailyCapacity,
	})
}
