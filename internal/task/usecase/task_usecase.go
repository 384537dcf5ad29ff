package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/friction"
	"taskflow-backend/internal/task/lifecycle"
	"taskflow-backend/internal/task/repository"
	"taskflow-backend/internal/task/tracking"
	"taskflow-backend/pkg/clock"
	"taskflow-backend/pkg/fuzzy"

	"github.com/google/uuid"
)

const (
	defaultListLimit   = 50
	maxListLimit       = 200
	defaultSearchLimit = 20
)

// taskUsecase implements TaskUsecase interface
type taskUsecase struct {
	taskRepo repository.TaskRepository
	clock    clock.Clock
	loc      *time.Location
	notifier Notifier
}

// NewTaskUsecase creates a new instance of taskUsecase
func NewTaskUsecase(taskRepo repository.TaskRepository, clk clock.Clock, loc *time.Location) TaskUsecase {
	if loc == nil {
		loc = time.UTC
	}
	return &taskUsecase{
		taskRepo: taskRepo,
		clock:    clk,
		loc:      loc,
	}
}

func (u *taskUsecase) SetNotifier(n Notifier) {
	u.notifier = n
}

func (u *taskUsecase) CreateTask(ctx context.Context, userID string, input CreateTaskInput) (*domain.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	dueDate, err := parseOptionalDate("due_date", input.DueDate, u.loc)
	if err != nil {
		return nil, err
	}
	startAt, err := parseOptionalDate("start_at", input.StartAt, u.loc)
	if err != nil {
		return nil, err
	}

	priority := domain.PriorityMedium
	if input.Priority != "" {
		priority = domain.Priority(input.Priority)
	}

	now := u.clock.Now()
	task := &domain.Task{
		ID:               uuid.New().String(),
		UserID:           userID,
		Title:            input.Title,
		Description:      input.Description,
		Status:           domain.TaskStatusTodo,
		Priority:         priority,
		DueDate:          dueDate,
		StartAt:          startAt,
		EstimatedMinutes: input.EstimatedMinutes,
		Subtasks:         []domain.Subtask{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := u.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (u *taskUsecase) GetTaskByID(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID, userID)
	if err != nil {
		return nil, fmt.Errorf("find task %s: %w", taskID, err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (u *taskUsecase) GetTaskDetail(ctx context.Context, userID, taskID string) (*TaskDetail, error) {
	task, err := u.GetTaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	now := u.clock.Now()
	return &TaskDetail{
		Task:               task,
		LiveTrackedSeconds: tracking.LiveTotal(task.TimeTracking, now),
		Friction:           friction.Score(task, now),
	}, nil
}

func (u *taskUsecase) GetUserTasks(ctx context.Context, userID string, status *string, limit, offset int) ([]*domain.Task, int64, error) {
	filter := repository.TaskFilter{UserID: userID}
	if status != nil && *status != "" {
		s := domain.TaskStatus(*status)
		if !s.Valid() {
			return nil, 0, domain.NewValidationError("status", "unknown status %q", *status)
		}
		filter.Statuses = []domain.TaskStatus{s}
	}

	total, err := u.taskRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	filter.Limit = limit
	filter.Offset = offset

	tasks, err := u.taskRepo.FindMany(ctx, filter, repository.TaskSort{})
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

func (u *taskUsecase) SearchTasks(ctx context.Context, userID, query string, limit int) ([]*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("q", "is required")
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultSearchLimit
	}

	tasks, err := u.taskRepo.FindMany(ctx, repository.TaskFilter{UserID: userID}, repository.TaskSort{Field: repository.SortByUpdatedAt, Desc: true})
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}

	results := []*SearchResult{}
	for _, task := range tasks {
		if !fuzzy.MatchTask(query, task.Title, task.Description) {
			continue
		}
		results = append(results, &SearchResult{
			Task:  task,
			Score: fuzzy.RelevanceScore(query, task.Title, task.Description),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (u *taskUsecase) UpdateTask(ctx context.Context, userID, taskID string, updates TaskUpdateRequest) (*domain.Task, error) {
	if err := validateInput(updates); err != nil {
		return nil, err
	}
	var target domain.TaskStatus
	if updates.Status != nil {
		target = domain.TaskStatus(*updates.Status)
		if !target.Valid() {
			return nil, domain.NewValidationError("status", "unknown status %q", *updates.Status)
		}
	}
	if updates.Title != nil {
		trimmed := strings.TrimSpace(*updates.Title)
		if trimmed == "" {
			return nil, domain.NewValidationError("title", "is required")
		}
		updates.Title = &trimmed
	}
	dueDate, err := parseOptionalDate("due_date", updates.DueDate, u.loc)
	if err != nil {
		return nil, err
	}
	startAt, err := parseOptionalDate("start_at", updates.StartAt, u.loc)
	if err != nil {
		return nil, err
	}

	var change lifecycle.Result
	task, err := u.taskRepo.WithTaskLock(ctx, taskID, userID, func(task *domain.Task, _ repository.TaskWriter) error {
		now := u.clock.Now()

		if updates.Title != nil {
			task.Title = *updates.Title
		}
		if updates.Description != nil {
			task.Description = *updates.Description
		}
		if updates.Priority != nil {
			if p := domain.Priority(*updates.Priority); p != task.Priority {
				task.Priority = p
				task.PriorityChangeCount++
			}
		}
		if updates.DueDate != nil {
			task.DueDate = dueDate
		}
		if updates.StartAt != nil {
			task.StartAt = startAt
		}
		if updates.EstimatedMinutes != nil {
			task.EstimatedMinutes = *updates.EstimatedMinutes
		}
		if updates.ClearActualMinutes {
			task.ActualMinutes = nil
		} else if updates.ActualMinutes != nil {
			v := *updates.ActualMinutes
			task.ActualMinutes = &v
		}

		if updates.Status != nil {
			var terr error
			change, terr = lifecycle.Transition(task, target, now)
			return terr
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", taskID, err)
	}

	if change.Changed {
		u.notifyStatusChanged(ctx, task, change)
	}
	return task, nil
}

func (u *taskUsecase) DeleteTask(ctx context.Context, userID, taskID string) error {
	if err := u.taskRepo.Delete(ctx, taskID, userID); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

func (u *taskUsecase) ChangeStatus(ctx context.Context, userID, taskID, status string) (*StatusChange, error) {
	target := domain.TaskStatus(status)
	if !target.Valid() {
		return nil, domain.NewValidationError("status", "unknown status %q", status)
	}

	var change lifecycle.Result
	task, err := u.taskRepo.WithTaskLock(ctx, taskID, userID, func(task *domain.Task, _ repository.TaskWriter) error {
		var err error
		change, err = lifecycle.Transition(task, target, u.clock.Now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("change status of task %s: %w", taskID, err)
	}

	if change.Changed {
		log.Printf("[TaskUsecase] Task %s: %s -> %s (reflection prompt: %v)", task.ID, change.PreviousStatus, task.Status, change.ReflectionTriggered)
		u.notifyStatusChanged(ctx, task, change)
	}
	return &StatusChange{Task: task, Result: change}, nil
}

func (u *taskUsecase) ResetTimeTracking(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	return u.mutate(ctx, userID, taskID, "reset time tracking", func(task *domain.Task) error {
		tracking.Reset(&task.TimeTracking)
		return nil
	})
}

func (u *taskUsecase) SetTrackedMinutes(ctx context.Context, userID, taskID string, minutes int) (*domain.Task, error) {
	// reject before taking the lock so nothing is attempted on bad input
	if minutes < 0 || minutes > tracking.MaxTrackedMinutes {
		return nil, domain.NewValidationError("minutes", "must be between 0 and %d", tracking.MaxTrackedMinutes)
	}
	return u.mutate(ctx, userID, taskID, "set tracked minutes", func(task *domain.Task) error {
		return tracking.SetTrackedMinutes(&task.TimeTracking, minutes)
	})
}

func (u *taskUsecase) AddSubtask(ctx context.Context, userID, taskID, title string) (*domain.Task, error) {
	return u.mutate(ctx, userID, taskID, "add subtask", func(task *domain.Task) error {
		_, err := lifecycle.AddSubtask(task, title, u.clock.Now())
		return err
	})
}

func (u *taskUsecase) SetSubtaskDone(ctx context.Context, userID, taskID, subtaskID string, done bool) (*domain.Task, error) {
	return u.mutate(ctx, userID, taskID, "toggle subtask", func(task *domain.Task) error {
		_, err := lifecycle.SetSubtaskDone(task, subtaskID, done, u.clock.Now())
		return err
	})
}

func (u *taskUsecase) DeleteSubtask(ctx context.Context, userID, taskID, subtaskID string) (*domain.Task, error) {
	return u.mutate(ctx, userID, taskID, "delete subtask", func(task *domain.Task) error {
		return lifecycle.RemoveSubtask(task, subtaskID)
	})
}

func (u *taskUsecase) SaveReflection(ctx context.Context, userID, taskID, notes string) (*domain.Task, error) {
	return u.mutate(ctx, userID, taskID, "save reflection", func(task *domain.Task) error {
		_, err := lifecycle.SaveReflection(task, notes, u.clock.Now())
		return err
	})
}

func (u *taskUsecase) CreateFollowUp(ctx context.Context, userID, taskID string) (*FollowUpResult, error) {
	var followUp *domain.Task
	original, err := u.taskRepo.WithTaskLock(ctx, taskID, userID, func(task *domain.Task, tx repository.TaskWriter) error {
		f, err := lifecycle.BuildFollowUp(task, u.clock.Now(), u.loc)
		if err != nil {
			return err
		}
		followUp = f
		return tx.Create(f)
	})
	if err != nil {
		return nil, fmt.Errorf("create follow-up for task %s: %w", taskID, err)
	}

	log.Printf("[TaskUsecase] Created follow-up %s from task %s with %d subtasks", followUp.ID, original.ID, len(followUp.Subtasks))
	return &FollowUpResult{Original: original, FollowUp: followUp}, nil
}

func (u *taskUsecase) GetFrictionReport(ctx context.Context, userID string) ([]*FrictionEntry, error) {
	tasks, err := u.taskRepo.FindMany(ctx, repository.TaskFilter{
		UserID:   userID,
		Statuses: []domain.TaskStatus{domain.TaskStatusTodo, domain.TaskStatusDoing, domain.TaskStatusHold},
	}, repository.TaskSort{})
	if err != nil {
		return nil, fmt.Errorf("load tasks for friction report: %w", err)
	}

	now := u.clock.Now()
	entries := make([]*FrictionEntry, 0, len(tasks))
	for _, task := range tasks {
		entries = append(entries, &FrictionEntry{
			TaskID:   task.ID,
			Title:    task.Title,
			Status:   task.Status,
			Priority: task.Priority,
			Result:   friction.Score(task, now),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries, nil
}

func (u *taskUsecase) GetEstimationStats(ctx context.Context, userID string) (*EstimationStats, error) {
	tasks, err := u.taskRepo.FindMany(ctx, repository.TaskFilter{
		UserID:   userID,
		Statuses: []domain.TaskStatus{domain.TaskStatusDone},
	}, repository.TaskSort{})
	if err != nil {
		return nil, fmt.Errorf("load completed tasks: %w", err)
	}

	stats := &EstimationStats{
		CompletedTasks: len(tasks),
		ByCategory: map[domain.EstimationCategory]int{
			domain.EstimationAccurate:       0,
			domain.EstimationUnderestimated: 0,
			domain.EstimationOverestimated:  0,
		},
	}
	var accuracy, delta float64
	for _, task := range tasks {
		er := task.EstimationResult
		if er == nil {
			continue
		}
		stats.EvaluatedTasks++
		stats.ByCategory[er.Category]++
		accuracy += er.AccuracyScore
		delta += er.DeltaPercent
	}
	if stats.EvaluatedTasks > 0 {
		n := float64(stats.EvaluatedTasks)
		stats.AverageAccuracy = accuracy / n
		stats.AverageDeltaPercent = delta / n
	}
	return stats, nil
}

// mutate runs fn under the task lock and persists the result
func (u *taskUsecase) mutate(ctx context.Context, userID, taskID, action string, fn func(task *domain.Task) error) (*domain.Task, error) {
	task, err := u.taskRepo.WithTaskLock(ctx, taskID, userID, func(task *domain.Task, _ repository.TaskWriter) error {
		return fn(task)
	})
	if err != nil {
		return nil, fmt.Errorf("%s on task %s: %w", action, taskID, err)
	}
	return task, nil
}

func (u *taskUsecase) notifyStatusChanged(ctx context.Context, task *domain.Task, change lifecycle.Result) {
	if u.notifier == nil {
		return
	}
	u.notifier.StatusChanged(ctx, task, change)
}
