package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/planner"
	"taskflow-backend/internal/task/repository"
	"taskflow-backend/pkg/clock"
)

type plannerUsecase struct {
	taskRepo        repository.TaskRepository
	clock           clock.Clock
	loc             *time.Location
	defaultCapacity func() int
	notifier        Notifier
}

// NewPlannerUsecase creates a planner. defaultCapacity is read on every
// run so capacity changes made at runtime apply to the next plan.
func NewPlannerUsecase(taskRepo repository.TaskRepository, clk clock.Clock, loc *time.Location, defaultCapacity func() int) PlannerUsecase {
	if loc == nil {
		loc = time.UTC
	}
	return &plannerUsecase{
		taskRepo:        taskRepo,
		clock:           clk,
		loc:             loc,
		defaultCapacity: defaultCapacity,
	}
}

func (u *plannerUsecase) SetNotifier(n Notifier) {
	u.notifier = n
}

func (u *plannerUsecase) GenerateWeeklyPlan(ctx context.Context, userID string, req PlanRequest) (*planner.WeeklyPlan, error) {
	if err := validateInput(req); err != nil {
		return nil, err
	}
	capacity := req.DailyCapacity
	if capacity == 0 && u.defaultCapacity != nil {
		capacity = u.defaultCapacity()
	}
	if capacity <= 0 {
		return nil, domain.NewValidationError("daily_capacity", "must be positive")
	}

	now := u.clock.Now()
	weekStart, _ := planner.WeekWindow(now, u.loc)
	tasks, err := u.taskRepo.FindMany(ctx, repository.TaskFilter{
		UserID:           userID,
		Statuses:         []domain.TaskStatus{domain.TaskStatusTodo, domain.TaskStatusDoing},
		StartAtNilOrFrom: &weekStart,
	}, repository.TaskSort{Field: repository.SortByCreatedAt})
	if err != nil {
		return nil, fmt.Errorf("load planning candidates: %w", err)
	}

	plan := planner.Plan(planner.Input{
		Now:           now,
		Location:      u.loc,
		DailyCapacity: capacity,
		LockedDays:    req.LockedDays,
		Tasks:         tasks,
	})
	if len(plan.Unassigned) > 0 {
		log.Printf("[Planner] User %s: %d task(s) did not fit in week of %s", userID, len(plan.Unassigned), plan.WeekStart.Format(planner.DateLayout))
	}
	return plan, nil
}

// AcceptWeeklyPlan validates every assignment before writing any of them.
// Each task is then updated under its own lock; a failure part-way leaves
// earlier tasks anchored.
func (u *plannerUsecase) AcceptWeeklyPlan(ctx context.Context, userID string, assignments []planner.Assignment) ([]*domain.Task, error) {
	if len(assignments) == 0 {
		return nil, domain.NewValidationError("assignments", "is required")
	}

	weekStart, _ := planner.WeekWindow(u.clock.Now(), u.loc)
	dates := make(map[string]time.Time, len(assignments))
	order := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.TaskID == "" {
			return nil, domain.NewValidationError("task_id", "is required")
		}
		date, err := planner.ResolveAssignmentDate(a.Date, weekStart, u.loc)
		if err != nil {
			return nil, err
		}
		if _, seen := dates[a.TaskID]; !seen {
			order = append(order, a.TaskID)
		}
		// later entries for the same task win
		dates[a.TaskID] = date
	}

	updated := make([]*domain.Task, 0, len(order))
	for _, id := range order {
		date := dates[id]
		task, err := u.taskRepo.WithTaskLock(ctx, id, userID, func(task *domain.Task, _ repository.TaskWriter) error {
			task.StartAt = &date
			return nil
		})
		if err != nil {
			return updated, fmt.Errorf("anchor task %s: %w", id, err)
		}
		updated = append(updated, task)
	}

	log.Printf("[Planner] User %s accepted plan for %d task(s)", userID, len(updated))
	if u.notifier != nil {
		accepted := make([]planner.Assignment, 0, len(order))
		for _, id := range order {
			accepted = append(accepted, planner.Assignment{TaskID: id, Date: dates[id].Format(planner.DateLayout)})
		}
		u.notifier.PlanAccepted(ctx, userID, accepted)
	}
	return updated, nil
}
