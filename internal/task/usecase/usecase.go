package usecase

import (
	"context"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/friction"
	"taskflow-backend/internal/task/lifecycle"
	"taskflow-backend/internal/task/planner"
)

// TaskUsecase defines the interface for task business logic
type TaskUsecase interface {
	// CreateTask creates a new todo task
	CreateTask(ctx context.Context, userID string, input CreateTaskInput) (*domain.Task, error)

	// GetTaskByID retrieves a task by ID (scoped to the owner)
	GetTaskByID(ctx context.Context, userID, taskID string) (*domain.Task, error)

	// GetTaskDetail returns the task with its live tracked time and friction score
	GetTaskDetail(ctx context.Context, userID, taskID string) (*TaskDetail, error)

	// GetUserTasks retrieves the user's tasks with an optional status filter
	GetUserTasks(ctx context.Context, userID string, status *string, limit, offset int) ([]*domain.Task, int64, error)

	// SearchTasks finds tasks whose title or description fuzzy-matches query
	SearchTasks(ctx context.Context, userID, query string, limit int) ([]*SearchResult, error)

	// UpdateTask updates descriptive and scheduling fields. A status
	// change is routed through the state machine.
	UpdateTask(ctx context.Context, userID, taskID string, updates TaskUpdateRequest) (*domain.Task, error)

	// DeleteTask deletes a task
	DeleteTask(ctx context.Context, userID, taskID string) error

	// ChangeStatus transitions the task and applies lifecycle side effects
	ChangeStatus(ctx context.Context, userID, taskID, status string) (*StatusChange, error)

	// ResetTimeTracking clears the time ledger
	ResetTimeTracking(ctx context.Context, userID, taskID string) (*domain.Task, error)

	// SetTrackedMinutes overrides the time ledger with a single total
	SetTrackedMinutes(ctx context.Context, userID, taskID string, minutes int) (*domain.Task, error)

	AddSubtask(ctx context.Context, userID, taskID, title string) (*domain.Task, error)
	SetSubtaskDone(ctx context.Context, userID, taskID, subtaskID string, done bool) (*domain.Task, error)
	DeleteSubtask(ctx context.Context, userID, taskID, subtaskID string) (*domain.Task, error)

	// SaveReflection stores completion notes and a completion-rate snapshot
	SaveReflection(ctx context.Context, userID, taskID, notes string) (*domain.Task, error)

	// CreateFollowUp spawns a task for the unfinished subtasks
	CreateFollowUp(ctx context.Context, userID, taskID string) (*FollowUpResult, error)

	// GetFrictionReport scores every unfinished task, riskiest first
	GetFrictionReport(ctx context.Context, userID string) ([]*FrictionEntry, error)

	// GetEstimationStats summarises estimation accuracy of completed tasks
	GetEstimationStats(ctx context.Context, userID string) (*EstimationStats, error)

	// SetNotifier sets where task events are published
	SetNotifier(n Notifier)
}

// PlannerUsecase generates and accepts weekly plans
type PlannerUsecase interface {
	// GenerateWeeklyPlan proposes a schedule for the current week without persisting it
	GenerateWeeklyPlan(ctx context.Context, userID string, req PlanRequest) (*planner.WeeklyPlan, error)

	// AcceptWeeklyPlan anchors each assigned task to its day
	AcceptWeeklyPlan(ctx context.Context, userID string, assignments []planner.Assignment) ([]*domain.Task, error)

	SetNotifier(n Notifier)
}

// Notifier receives task events after they are committed. Implementations
// must not hold up the caller on delivery and handle their own errors.
type Notifier interface {
	StatusChanged(ctx context.Context, task *domain.Task, change lifecycle.Result)
	PlanAccepted(ctx context.Context, userID string, assignments []planner.Assignment)
}

// CreateTaskInput represents a new task
type CreateTaskInput struct {
	Title            string  `json:"title" validate:"required,max=200"`
	Description      string  `json:"description" validate:"max=5000"`
	Priority         string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate          *string `json:"due_date"`
	StartAt          *string `json:"start_at"`
	EstimatedMinutes int     `json:"estimated_minutes" validate:"gte=0,lte=10080"`
}

// TaskUpdateRequest represents the fields that can be updated.
// Empty strings clear DueDate/StartAt; ClearActualMinutes drops the override.
type TaskUpdateRequest struct {
	Title              *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description        *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	DueDate            *string `json:"due_date,omitempty"`
	StartAt            *string `json:"start_at,omitempty"`
	Priority           *string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Status             *string `json:"status,omitempty"`
	EstimatedMinutes   *int    `json:"estimated_minutes,omitempty" validate:"omitempty,gte=0,lte=10080"`
	ActualMinutes      *int    `json:"actual_minutes,omitempty" validate:"omitempty,gte=0,lte=100000"`
	ClearActualMinutes bool    `json:"clear_actual_minutes,omitempty"`
}

// PlanRequest parameterises a planning run. Zero capacity means the
// configured default.
type PlanRequest struct {
	DailyCapacity int   `json:"daily_capacity" validate:"gte=0,lte=1440"`
	LockedDays    []int `json:"locked_days" validate:"dive,gte=0,lte=6"`
}

// StatusChange is the outcome of ChangeStatus
type StatusChange struct {
	Task *domain.Task `json:"task"`
	lifecycle.Result
}

type TaskDetail struct {
	Task               *domain.Task    `json:"task"`
	LiveTrackedSeconds int64           `json:"live_tracked_seconds"`
	Friction           friction.Result `json:"friction"`
}

type SearchResult struct {
	Task  *domain.Task `json:"task"`
	Score float64      `json:"score"`
}

type FollowUpResult struct {
	Original *domain.Task `json:"original"`
	FollowUp *domain.Task `json:"follow_up"`
}

type FrictionEntry struct {
	TaskID   string            `json:"task_id"`
	Title    string            `json:"title"`
	Status   domain.TaskStatus `json:"status"`
	Priority domain.Priority   `json:"priority"`
	friction.Result
}

type EstimationStats struct {
	CompletedTasks      int                               `json:"completed_tasks"`
	EvaluatedTasks      int                               `json:"evaluated_tasks"`
	ByCategory          map[domain.EstimationCategory]int `json:"by_category"`
	AverageAccuracy     float64                           `json:"average_accuracy"`
	AverageDeltaPercent float64                           `json:"average_delta_percent"`
}
