package delivery

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/usecase"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskUsecase usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{
		taskUsecase: taskUsecase,
	}
}

// ChangeStatusRequest represents the request body for a status change
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetTrackedMinutesRequest overrides the tracked total
type SetTrackedMinutesRequest struct {
	Minutes *int `json:"minutes" binding:"required"`
}

type SubtaskRequest struct {
	Title string `json:"title" binding:"required"`
}

type SubtaskDoneRequest struct {
	IsDone *bool `json:"is_done" binding:"required"`
}

type ReflectionRequest struct {
	Notes string `json:"notes"`
}

// GetTasks returns the tasks of the authenticated user
// GET /api/tasks?status=todo&limit=50&offset=0
func (h *TaskHandler) GetTasks(c *gin.Context) {
	userID := c.GetString("userID")

	status := c.Query("status")
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset")
	if !ok {
		return
	}

	var statusPtr *string
	if status != "" {
		statusPtr = &status
	}

	tasks, total, err := h.taskUsecase.GetUserTasks(c.Request.Context(), userID, statusPtr, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": total,
	})
}

// SearchTasks fuzzy-searches task titles and descriptions
// GET /api/tasks/search?q=report&limit=20
func (h *TaskHandler) SearchTasks(c *gin.Context) {
	userID := c.GetString("userID")
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	results, err := h.taskUsecase.SearchTasks(c.Request.Context(), userID, c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// GetTaskByID returns a task with its live tracked time and friction score
// GET /api/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	detail, err := h.taskUsecase.GetTaskDetail(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CreateTask creates a new task
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID := c.GetString("userID")

	var req usecase.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.CreateTask(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// UpdateTask updates an existing task
// PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var updates usecase.TaskUpdateRequest
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.UpdateTask(c.Request.Context(), c.GetString("userID"), c.Param("id"), updates)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask deletes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskUsecase.DeleteTask(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// UpdateTaskStatus moves a task through the lifecycle
// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	change, err := h.taskUsecase.ChangeStatus(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, change)
}

// ResetTimeTracking clears the tracked time
// POST /api/tasks/:id/time-tracking/reset
func (h *TaskHandler) ResetTimeTracking(c *gin.Context) {
	task, err := h.taskUsecase.ResetTimeTracking(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// SetTrackedMinutes replaces the tracked time with a single total
// PUT /api/tasks/:id/time-tracking
func (h *TaskHandler) SetTrackedMinutes(c *gin.Context) {
	var req SetTrackedMinutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.SetTrackedMinutes(c.Request.Context(), c.GetString("userID"), c.Param("id"), *req.Minutes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// AddSubtask POST /api/tasks/:id/subtasks
func (h *TaskHandler) AddSubtask(c *gin.Context) {
	var req SubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.AddSubtask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// SetSubtaskDone PATCH /api/tasks/:id/subtasks/:subtaskId
func (h *TaskHandler) SetSubtaskDone(c *gin.Context) {
	var req SubtaskDoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.SetSubtaskDone(c.Request.Context(), c.GetString("userID"), c.Param("id"), c.Param("subtaskId"), *req.IsDone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteSubtask DELETE /api/tasks/:id/subtasks/:subtaskId
func (h *TaskHandler) DeleteSubtask(c *gin.Context) {
	task, err := h.taskUsecase.DeleteSubtask(c.Request.Context(), c.GetString("userID"), c.Param("id"), c.Param("subtaskId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// SaveReflection stores completion notes
// PUT /api/tasks/:id/reflection
func (h *TaskHandler) SaveReflection(c *gin.Context) {
	var req ReflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.SaveReflection(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateFollowUp spawns a task from the unfinished subtasks
// POST /api/tasks/:id/follow-up
func (h *TaskHandler) CreateFollowUp(c *gin.Context) {
	result, err := h.taskUsecase.CreateFollowUp(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetFrictionReport GET /api/tasks/friction
func (h *TaskHandler) GetFrictionReport(c *gin.Context) {
	entries, err := h.taskUsecase.GetFrictionReport(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": entries})
}

// GetEstimationStats GET /api/tasks/estimation-stats
func (h *TaskHandler) GetEstimationStats(c *gin.Context) {
	stats, err := h.taskUsecase.GetEstimationStats(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// respondError maps usecase errors to status codes
func respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, domain.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.Is(err, domain.ErrSubtaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Subtask not found"})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Task was modified by another request, retry"})
	default:
		log.Printf("[TaskHandler] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// intQuery reads an optional integer query parameter. Absent means 0 and
// lets the usecase apply its default; anything unparsable is a 400.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return n, true
}
