package delivery

import (
	"net/http"
	"strconv"
	"strings"

	"taskflow-backend/internal/task/planner"
	"taskflow-backend/internal/task/usecase"

	"github.com/gin-gonic/gin"
)

// PlannerHandler serves the weekly planner
type PlannerHandler struct {
	plannerUsecase usecase.PlannerUsecase
}

func NewPlannerHandler(plannerUsecase usecase.PlannerUsecase) *PlannerHandler {
	return &PlannerHandler{plannerUsecase: plannerUsecase}
}

// AcceptPlanRequest carries the assignments the user kept
type AcceptPlanRequest struct {
	Assignments []planner.Assignment `json:"assignments" binding:"required,dive"`
}

// GetWeeklyPlan proposes a plan for the current week
// GET /api/planner/week?daily_capacity=480&locked_days=5,6
func (h *PlannerHandler) GetWeeklyPlan(c *gin.Context) {
	var req usecase.PlanRequest

	if raw := c.Query("daily_capacity"); raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "daily_capacity must be an integer"})
			return
		}
		req.DailyCapacity = capacity
	}

	// accepts both locked_days=1,2 and locked_days=1&locked_days=2
	for _, raw := range c.QueryArray("locked_days") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			day, err := strconv.Atoi(part)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "locked_days must be day indexes 0-6"})
				return
			}
			req.LockedDays = append(req.LockedDays, day)
		}
	}

	plan, err := h.plannerUsecase.GenerateWeeklyPlan(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// AcceptWeeklyPlan anchors the chosen tasks to their days
// POST /api/planner/week/accept
func (h *PlannerHandler) AcceptWeeklyPlan(c *gin.Context) {
	var req AcceptPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks, err := h.plannerUsecase.AcceptWeeklyPlan(c.Request.Context(), c.GetString("userID"), req.Assignments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}
