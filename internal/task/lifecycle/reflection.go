package lifecycle

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"taskflow-backend/internal/task/domain"

	"github.com/google/uuid"
)

const (
	MaxSubtaskTitleLength  = 200
	MaxReflectionNotesSize = 5000
	followUpTitlePrefix    = "Follow-up: "
)

// AddSubtask appends a new not-done subtask
func AddSubtask(task *domain.Task, title string, now time.Time) (*domain.Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.NewValidationError("title", "is required")
	}
	if utf8.RuneCountInString(title) > MaxSubtaskTitleLength {
		return nil, domain.NewValidationError("title", "must be at most %d characters", MaxSubtaskTitleLength)
	}
	task.Subtasks = append(task.Subtasks, domain.Subtask{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
	})
	return &task.Subtasks[len(task.Subtasks)-1], nil
}

// SetSubtaskDone sets the done flag of one subtask. Setting the flag it
// already has is a no-op, so repeated requests are safe.
func SetSubtaskDone(task *domain.Task, subtaskID string, done bool, now time.Time) (*domain.Subtask, error) {
	i := subtaskIndex(task, subtaskID)
	if i < 0 {
		return nil, domain.ErrSubtaskNotFound
	}
	st := &task.Subtasks[i]
	if st.IsDone == done {
		return st, nil
	}
	st.IsDone = done
	if done {
		at := now
		st.DoneAt = &at
	} else {
		st.DoneAt = nil
	}
	return st, nil
}

// RemoveSubtask deletes a subtask keeping the order of the rest
func RemoveSubtask(task *domain.Task, subtaskID string) error {
	i := subtaskIndex(task, subtaskID)
	if i < 0 {
		return domain.ErrSubtaskNotFound
	}
	task.Subtasks = append(task.Subtasks[:i], task.Subtasks[i+1:]...)
	return nil
}

// CompletionRate is the share of done subtasks in percent, 0 without subtasks
func CompletionRate(subtasks []domain.Subtask) int {
	if len(subtasks) == 0 {
		return 0
	}
	done := 0
	for _, st := range subtasks {
		if st.IsDone {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(subtasks)) * 100))
}

// SaveReflection records notes and a fresh completion-rate snapshot
func SaveReflection(task *domain.Task, notes string, now time.Time) (*domain.CompletionReflection, error) {
	if utf8.RuneCountInString(notes) > MaxReflectionNotesSize {
		return nil, domain.NewValidationError("notes", "must be at most %d characters", MaxReflectionNotesSize)
	}
	r := ensureReflection(task, now)
	r.CompletionRate = CompletionRate(task.Subtasks)
	r.Notes = notes
	r.UpdatedAt = now
	return r, nil
}

// BuildFollowUp creates a new todo task carrying the unfinished subtasks
// of original, due at the next local midnight in loc. The original only
// gets its reflection marked as having accepted the suggestion; its
// subtask list is left alone.
func BuildFollowUp(original *domain.Task, now time.Time, loc *time.Location) (*domain.Task, error) {
	var carried []domain.Subtask
	for _, st := range original.Subtasks {
		if st.IsDone {
			continue
		}
		carried = append(carried, domain.Subtask{
			ID:        uuid.New().String(),
			Title:     st.Title,
			CreatedAt: now,
		})
	}
	if len(carried) == 0 {
		return nil, domain.NewValidationError("subtasks", "task has no unfinished subtasks")
	}

	due := NextLocalMidnight(now, loc)
	originalID := original.ID
	followUp := &domain.Task{
		ID:               uuid.New().String(),
		UserID:           original.UserID,
		Title:            followUpTitlePrefix + strings.TrimPrefix(original.Title, followUpTitlePrefix),
		Description:      original.Description,
		Status:           domain.TaskStatusTodo,
		Priority:         original.Priority,
		DueDate:          &due,
		EstimatedMinutes: original.EstimatedMinutes,
		Subtasks:         carried,
		OriginalTaskID:   &originalID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	r := ensureReflection(original, now)
	r.AutoSuggestionsAccepted = true
	r.UpdatedAt = now
	return followUp, nil
}

// NextLocalMidnight returns 00:00 of the calendar day after now in loc
func NextLocalMidnight(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

func ensureReflection(task *domain.Task, now time.Time) *domain.CompletionReflection {
	if task.CompletionReflection == nil {
		task.CompletionReflection = &domain.CompletionReflection{
			CompletionRate: CompletionRate(task.Subtasks),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}
	return task.CompletionReflection
}

func subtaskIndex(task *domain.Task, id string) int {
	for i := range task.Subtasks {
		if task.Subtasks[i].ID == id {
			return i
		}
	}
	return -1
}
