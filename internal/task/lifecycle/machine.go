// Package lifecycle owns task status transitions and their side effects
// on time tracking, completion bookkeeping and estimation accuracy.
//
// Every function here mutates the task it is given and performs no I/O;
// callers are expected to hold the per-task lock (see
// repository.TaskRepository.WithTaskLock) around read, transition and save.
package lifecycle

import (
	"time"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/tracking"
)

// Result describes what a transition did
type Result struct {
	Changed             bool              `json:"changed"`
	PreviousStatus      domain.TaskStatus `json:"previous_status"`
	ReflectionTriggered bool              `json:"reflection_triggered"`
	Reopened            bool              `json:"reopened"`
	ClosedSession       *domain.Session   `json:"closed_session,omitempty"`
}

// Transition moves task to the target status and applies side effects.
// A transition to the current status changes nothing.
func Transition(task *domain.Task, to domain.TaskStatus, now time.Time) (Result, error) {
	if !to.Valid() {
		return Result{}, domain.NewValidationError("status", "unknown status %q", to)
	}

	from := task.Status
	res := Result{PreviousStatus: from}
	if from == to {
		return res, nil
	}
	res.Changed = true

	// isRunning implies doing: leaving doing always closes the session first
	if to != domain.TaskStatusDoing {
		res.ClosedSession = tracking.Finalize(&task.TimeTracking, now)
	}

	if from == domain.TaskStatusDone && (to == domain.TaskStatusDoing || to == domain.TaskStatusTodo) {
		task.ReopenCount++
		task.EstimationResult = nil
		res.Reopened = true
	}

	switch to {
	case domain.TaskStatusDoing:
		tracking.Start(&task.TimeTracking, now)
		task.CompletedAt = nil
	case domain.TaskStatusDone:
		completed := now
		task.CompletedAt = &completed
		task.EstimationResult = ComputeEstimation(task.EstimatedMinutes, ResolveActualMinutes(task))
		res.ReflectionTriggered = len(task.Subtasks) > 0
		task.DoneTransitionMeta = &domain.DoneTransitionMeta{
			PreviousStatus:      from,
			ReflectionTriggered: res.ReflectionTriggered,
			ReachedAt:           now,
		}
	default:
		// todo, hold, archived: completedAt is only ever set while done
		task.CompletedAt = nil
	}

	changed := now
	task.LastStatusChangedAt = &changed
	task.Status = to
	return res, nil
}
