package repository

import (
	"context"
	"time"

	"taskflow-backend/internal/task/domain"
)

// TaskFilter narrows FindMany/Count. Every query is scoped by UserID.
type TaskFilter struct {
	UserID   string
	Statuses []domain.TaskStatus
	// StartAtNilOrFrom keeps tasks with no start date or one at/after it
	StartAtNilOrFrom *time.Time
	Limit            int
	Offset           int
}

// TaskSortField names a sortable column
type TaskSortField string

const (
	SortByDueDate   TaskSortField = "due_date"
	SortByCreatedAt TaskSortField = "created_at"
	SortByUpdatedAt TaskSortField = "updated_at"
)

// TaskSort orders FindMany results. The zero value sorts by due date
// (nulls last) then newest first, like the task list screen.
type TaskSort struct {
	Field TaskSortField
	Desc  bool
}

// TaskWriter is handed to WithTaskLock callbacks so they can create
// related tasks inside the same unit of work.
type TaskWriter interface {
	Create(task *domain.Task) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create stores a new task, assigning an ID if missing
	Create(ctx context.Context, task *domain.Task) error

	// FindByID returns the owner's task, or nil when it does not exist
	FindByID(ctx context.Context, id, userID string) (*domain.Task, error)

	// FindMany lists the tasks matching filter in sort order
	FindMany(ctx context.Context, filter TaskFilter, sort TaskSort) ([]*domain.Task, error)

	// Count returns how many tasks match filter (Limit/Offset ignored)
	Count(ctx context.Context, filter TaskFilter) (int64, error)

	// Save writes back a task previously read at task.Version.
	// Returns domain.ErrConcurrencyConflict if it changed in between.
	Save(ctx context.Context, task *domain.Task) error

	// Delete removes the owner's task. Returns domain.ErrTaskNotFound if absent.
	Delete(ctx context.Context, id, userID string) error

	// WithTaskLock runs fn against the current state of one task with
	// concurrent updates to that task excluded, then persists the result.
	// If fn returns an error nothing is written. Returns the saved task.
	// On a gorm store without transactions only the version check remains:
	// a concurrent writer makes it fail with domain.ErrConcurrencyConflict,
	// and tasks already created through tx are not rolled back.
	WithTaskLock(ctx context.Context, id, userID string, fn func(task *domain.Task, tx TaskWriter) error) (*domain.Task, error)
}
