package delivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/repository"
	"taskflow-backend/internal/task/usecase"
	"taskflow-backend/pkg/clock"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	clock  *clock.Fixed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryTaskRepository()
	clk := clock.NewFixed(time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC))
	tasks := NewTaskHandler(usecase.NewTaskUsecase(repo, clk, time.UTC))
	plans := NewPlannerHandler(usecase.NewPlannerUsecase(repo, clk, time.UTC, func() int { return 480 }))

	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set("userID", c.GetHeader("X-User"))
		c.Next()
	})
	api.GET("/tasks", tasks.GetTasks)
	api.POST("/tasks", tasks.CreateTask)
	api.GET("/tasks/search", tasks.SearchTasks)
	api.GET("/tasks/friction", tasks.GetFrictionReport)
	api.GET("/tasks/:id", tasks.GetTaskByID)
	api.PUT("/tasks/:id", tasks.UpdateTask)
	api.DELETE("/tasks/:id", tasks.DeleteTask)
	api.PATCH("/tasks/:id/status", tasks.UpdateTaskStatus)
	api.PUT("/tasks/:id/time-tracking", tasks.SetTrackedMinutes)
	api.POST("/tasks/:id/subtasks", tasks.AddSubtask)
	api.PATCH("/tasks/:id/subtasks/:subtaskId", tasks.SetSubtaskDone)
	api.POST("/tasks/:id/follow-up", tasks.CreateFollowUp)
	api.GET("/planner/week", plans.GetWeeklyPlan)
	api.POST("/planner/week/accept", plans.AcceptWeeklyPlan)

	return &testServer{router: r, clock: clk}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func (s *testServer) createTask(t *testing.T, user string, body map[string]any) domain.Task {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/tasks", user, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.Task](t, w)
}

func TestCreateAndGetTask(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "u1", map[string]any{"title": "Write report", "estimated_minutes": 60})

	w := s.do(t, http.MethodGet, "/api/tasks/"+task.ID, "u1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[usecase.TaskDetail](t, w)
	assert.Equal(t, "Write report", detail.Task.Title)
	assert.Equal(t, "low", string(detail.Friction.Level))
}

func TestCreateTask_BadRequest(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/tasks", "u1", map[string]any{"title": "x", "priority": "critical"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "priority")
}

func TestTaskIsScopedToOwner(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "u1", map[string]any{"title": "Private"})

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/tasks/"+task.ID, "u2", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/tasks/"+task.ID, "u2", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/tasks/"+task.ID, "u1", nil).Code)
}

func TestStatusFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "u1", map[string]any{"title": "Write report", "estimated_minutes": 60})

	w := s.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/status", "u1", map[string]string{"status": "doing"})
	require.Equal(t, http.StatusOK, w.Code)

	s.clock.Advance(40 * time.Minute)
	w = s.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/status", "u1", map[string]string{"status": "done"})
	require.Equal(t, http.StatusOK, w.Code)

	change := decode[usecase.StatusChange](t, w)
	assert.True(t, change.Changed)
	assert.Equal(t, domain.TaskStatusDoing, change.PreviousStatus)
	require.NotNil(t, change.Task.EstimationResult)
	assert.Equal(t, domain.EstimationOverestimated, change.Task.EstimationResult.Category)

	w = s.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/status", "u1", map[string]string{"status": "blocked"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetTrackedMinutes_OutOfRange(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "u1", map[string]any{"title": "Tracked"})

	w := s.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/time-tracking", "u1", map[string]int{"minutes": 100001})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/time-tracking", "u1", map[string]int{"minutes": 45})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2700, decode[domain.Task](t, w).TimeTracking.TotalSeconds)
}

func TestSubtasksAndFollowUp(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "u1", map[string]any{"title": "Launch"})

	w := s.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/subtasks", "u1", map[string]string{"title": "Copy"})
	require.Equal(t, http.StatusCreated, w.Code)
	subtaskID := decode[domain.Task](t, w).Subtasks[0].ID

	w = s.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/subtasks/missing", "u1", map[string]bool{"is_done": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/follow-up", "u1", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	result := decode[usecase.FollowUpResult](t, w)
	assert.Equal(t, "Follow-up: Launch", result.FollowUp.Title)

	w = s.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/subtasks/"+subtaskID, "u1", map[string]bool{"is_done": true})
	require.Equal(t, http.StatusOK, w.Code)

	// nothing left to carry over
	w = s.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/follow-up", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAndSearch(t *testing.T) {
	s := newTestServer(t)
	s.createTask(t, "u1", map[string]any{"title": "Buy groceries"})
	s.createTask(t, "u1", map[string]any{"title": "Renew passport"})
	s.createTask(t, "u2", map[string]any{"title": "Buy groceries too"})

	w := s.do(t, http.MethodGet, "/api/tasks?limit=1", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Tasks []domain.Task `json:"tasks"`
		Total int64         `json:"total"`
	}](t, w)
	assert.EqualValues(t, 2, list.Total)
	assert.Len(t, list.Tasks, 1)

	w = s.do(t, http.MethodGet, "/api/tasks/search?q=groceris", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[struct {
		Count int `json:"count"`
	}](t, w)
	assert.Equal(t, 1, found.Count)
}

func TestListAndSearch_RejectMalformedPaging(t *testing.T) {
	s := newTestServer(t)
	s.createTask(t, "u1", map[string]any{"title": "Buy groceries"})

	for _, path := range []string{
		"/api/tasks?limit=abc",
		"/api/tasks?offset=1.5",
		"/api/tasks/search?q=buy&limit=ten",
	} {
		w := s.do(t, http.MethodGet, path, "u1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, w.Body.String(), "must be an integer", path)
	}

	// omitted paging still falls back to the defaults
	w := s.do(t, http.MethodGet, "/api/tasks", "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlannerEndpoints(t *testing.T) {
	s := newTestServer(t)
	a := s.createTask(t, "u1", map[string]any{"title": "A", "priority": "urgent", "estimated_minutes": 60})
	s.createTask(t, "u1", map[string]any{"title": "B", "priority": "high", "estimated_minutes": 30})

	w := s.do(t, http.MethodGet, "/api/planner/week?daily_capacity=60&locked_days=0", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	plan := decode[struct {
		Days []struct {
			Date   string `json:"date"`
			Locked bool   `json:"locked"`
			Tasks  []struct {
				TaskID string `json:"task_id"`
			} `json:"tasks"`
		} `json:"days"`
	}](t, w)
	require.Len(t, plan.Days, 7)
	assert.True(t, plan.Days[0].Locked)
	assert.Empty(t, plan.Days[0].Tasks)
	require.Len(t, plan.Days[1].Tasks, 1)
	assert.Equal(t, a.ID, plan.Days[1].Tasks[0].TaskID)

	w = s.do(t, http.MethodGet, "/api/planner/week?locked_days=x", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/planner/week/accept", "u1", map[string]any{
		"assignments": []map[string]string{{"task_id": a.ID, "date": "2026-10-13"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/planner/week/accept", "u1", map[string]any{
		"assignments": []map[string]string{{"task_id": a.ID, "date": "2026-11-01"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/planner/week/accept", "u1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
