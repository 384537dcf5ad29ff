package domain

import "time"

// Priority represents task priority level
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight orders priorities for scheduling (urgent=4 ... low=1).
// Unknown values weigh zero.
func (p Priority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool {
	return p.Weight() > 0
}

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusTodo     TaskStatus = "todo"
	TaskStatusDoing    TaskStatus = "doing"
	TaskStatusHold     TaskStatus = "hold"
	TaskStatusDone     TaskStatus = "done"
	TaskStatusArchived TaskStatus = "archived"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusDoing, TaskStatusHold, TaskStatusDone, TaskStatusArchived:
		return true
	}
	return false
}

// IsOpen reports whether the task still needs work (todo or doing).
func (s TaskStatus) IsOpen() bool {
	return s == TaskStatusTodo || s == TaskStatusDoing
}

// Session is a closed time-tracking interval. Sessions are append-only.
type Session struct {
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int64     `json:"duration_seconds"`
}

// TimeTracking is the elapsed-time ledger of a task
type TimeTracking struct {
	TotalSeconds  int64      `json:"total_seconds"`
	IsRunning     bool       `json:"is_running"`
	LastStartedAt *time.Time `json:"last_started_at,omitempty"`
	Sessions      []Session  `json:"sessions"`
}

// EstimationCategory classifies how far the estimate was from reality
type EstimationCategory string

const (
	EstimationAccurate       EstimationCategory = "accurate"
	EstimationUnderestimated EstimationCategory = "underestimated"
	EstimationOverestimated  EstimationCategory = "overestimated"
)

// EstimationResult compares estimated and actual minutes of a completed task
type EstimationResult struct {
	EstimatedMinutes int                `json:"estimated_minutes"`
	ActualMinutes    int                `json:"actual_minutes"`
	DeltaMinutes     int                `json:"delta_minutes"`
	DeltaPercent     float64            `json:"delta_percent"`
	Category         EstimationCategory `json:"category"`
	AccuracyScore    float64            `json:"accuracy_score"`
}

// Subtask is a checklist item embedded in a task
type Subtask struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	IsDone    bool       `json:"is_done"`
	CreatedAt time.Time  `json:"created_at"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
}

// CompletionReflection is the user's retrospective on a finished task
type CompletionReflection struct {
	CompletionRate          int       `json:"completion_rate"`
	Notes                   string    `json:"notes"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
	AutoSuggestionsAccepted bool      `json:"auto_suggestions_accepted"`
}

// DoneTransitionMeta records how the task last reached done
type DoneTransitionMeta struct {
	PreviousStatus      TaskStatus `json:"previous_status"`
	ReflectionTriggered bool       `json:"reflection_triggered"`
	ReachedAt           time.Time  `json:"reached_at"`
}

// Task represents a unit of work owned by a single user.
// Status must only be changed through the lifecycle package.
type Task struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"index;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status" gorm:"index;default:todo"`
	Priority    Priority   `json:"priority" gorm:"default:medium"`

	DueDate     *time.Time `json:"due_date,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty" gorm:"index"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	TimeTracking     TimeTracking      `json:"time_tracking" gorm:"serializer:json;type:text"`
	EstimatedMinutes int               `json:"estimated_minutes"`
	ActualMinutes    *int              `json:"actual_minutes,omitempty"`
	EstimationResult *EstimationResult `json:"estimation_result" gorm:"serializer:json;type:text"`

	ReopenCount         int        `json:"reopen_count" gorm:"default:0"`
	PriorityChangeCount int        `json:"priority_change_count" gorm:"default:0"`
	LastStatusChangedAt *time.Time `json:"last_status_changed_at,omitempty"`

	Subtasks             []Subtask             `json:"subtasks" gorm:"serializer:json;type:text"`
	CompletionReflection *CompletionReflection `json:"completion_reflection,omitempty" gorm:"serializer:json;type:text"`
	DoneTransitionMeta   *DoneTransitionMeta   `json:"done_transition_meta,omitempty" gorm:"serializer:json;type:text"`
	OriginalTaskID       *string               `json:"original_task_id,omitempty" gorm:"index"`

	Version   int64     `json:"version" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without aliasing
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.DueDate = cloneTime(t.DueDate)
	c.StartAt = cloneTime(t.StartAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.LastStatusChangedAt = cloneTime(t.LastStatusChangedAt)
	c.TimeTracking.LastStartedAt = cloneTime(t.TimeTracking.LastStartedAt)
	if t.TimeTracking.Sessions != nil {
		c.TimeTracking.Sessions = append([]Session(nil), t.TimeTracking.Sessions...)
	}
	if t.ActualMinutes != nil {
		v := *t.ActualMinutes
		c.ActualMinutes = &v
	}
	if t.EstimationResult != nil {
		v := *t.EstimationResult
		c.EstimationResult = &v
	}
	if t.Subtasks != nil {
		c.Subtasks = make([]Subtask, len(t.Subtasks))
		for i, s := range t.Subtasks {
			s.DoneAt = cloneTime(s.DoneAt)
			c.Subtasks[i] = s
		}
	}
	if t.CompletionReflection != nil {
		v := *t.CompletionReflection
		c.CompletionReflection = &v
	}
	if t.DoneTransitionMeta != nil {
		v := *t.DoneTransitionMeta
		c.DoneTransitionMeta = &v
	}
	if t.OriginalTaskID != nil {
		v := *t.OriginalTaskID
		c.OriginalTaskID = &v
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
