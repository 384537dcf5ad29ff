package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/lifecycle"
	"taskflow-backend/internal/task/planner"
	"taskflow-backend/internal/task/repository"
	"taskflow-backend/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Thursday; the planning week runs 2026-10-12 .. 2026-10-18
var now = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

const userID = "user-1"

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []lifecycle.Result
	plans    [][]planner.Assignment
}

func (n *recordingNotifier) StatusChanged(_ context.Context, _ *domain.Task, change lifecycle.Result) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, change)
}

func (n *recordingNotifier) PlanAccepted(_ context.Context, _ string, assignments []planner.Assignment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.plans = append(n.plans, assignments)
}

type fixture struct {
	repo     repository.TaskRepository
	clock    *clock.Fixed
	tasks    TaskUsecase
	planner  PlannerUsecase
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     repository.NewMemoryTaskRepository(),
		clock:    clock.NewFixed(now),
		notifier: &recordingNotifier{},
	}
	f.tasks = NewTaskUsecase(f.repo, f.clock, time.UTC)
	f.tasks.SetNotifier(f.notifier)
	f.planner = NewPlannerUsecase(f.repo, f.clock, time.UTC, func() int { return 480 })
	f.planner.SetNotifier(f.notifier)
	return f
}

func (f *fixture) create(t *testing.T, input CreateTaskInput) *domain.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), userID, input)
	require.NoError(t, err)
	return task
}

func (f *fixture) status(t *testing.T, id string, status domain.TaskStatus) *StatusChange {
	t.Helper()
	change, err := f.tasks.ChangeStatus(context.Background(), userID, id, string(status))
	require.NoError(t, err)
	return change
}

func strPtr(s string) *string { return &s }

func TestCreateTask(t *testing.T) {
	f := newFixture(t)

	task := f.create(t, CreateTaskInput{Title: "  Write report  ", EstimatedMinutes: 60, DueDate: strPtr("2026-10-16")})

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, domain.TaskStatusTodo, task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), *task.DueDate)
}

func TestCreateTask_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]CreateTaskInput{
		"blank title":       {Title: "   "},
		"unknown priority":  {Title: "x", Priority: "critical"},
		"negative estimate": {Title: "x", EstimatedMinutes: -5},
		"bad due date":      {Title: "x", DueDate: strPtr("next tuesday")},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.tasks.CreateTask(ctx, userID, input)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}

	_, total, err := f.tasks.GetUserTasks(ctx, userID, nil, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestChangeStatus_DoneComputesEstimation(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, CreateTaskInput{Title: "Write report", EstimatedMinutes: 60})

	f.status(t, task.ID, domain.TaskStatusDoing)
	f.clock.Advance(40 * time.Minute)
	change := f.status(t, task.ID, domain.TaskStatusDone)

	assert.True(t, change.Changed)
	assert.Equal(t, domain.TaskStatusDoing, change.PreviousStatus)
	assert.False(t, change.ReflectionTriggered)
	require.NotNil(t, change.ClosedSession)
	assert.EqualValues(t, 2400, change.ClosedSession.DurationSeconds)

	done := change.Task
	assert.False(t, done.TimeTracking.IsRunning)
	assert.EqualValues(t, 2400, done.TimeTracking.TotalSeconds)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.EstimationResult)
	assert.Equal(t, 40, done.EstimationResult.ActualMinutes)
	assert.Equal(t, domain.EstimationOverestimated, done.EstimationResult.Category)
	assert.InDelta(t, -33.33, done.EstimationResult.DeltaPercent, 0.001)

	assert.Len(t, f.notifier.statuses, 2)
}

func TestChangeStatus_ReopenClearsCompletion(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, CreateTaskInput{Title: "Ship release", EstimatedMinutes: 30})

	f.status(t, task.ID, domain.TaskStatusDone)
	change := f.status(t, task.ID, domain.TaskStatusDoing)

	assert.True(t, change.Reopened)
	assert.Equal(t, 1, change.Task.ReopenCount)
	assert.Nil(t, change.Task.EstimationResult)
	assert.Nil(t, change.Task.CompletedAt)
	assert.True(t, change.Task.TimeTracking.IsRunning)
}

func TestChangeStatus_SameStatusIsNoOp(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, CreateTaskInput{Title: "Idle"})

	change := f.status(t, task.ID, domain.TaskStatusTodo)

	assert.False(t, change.Changed)
	assert.Nil(t, change.Task.LastStatusChangedAt)
	assert.Empty(t, f.notifier.statuses)
}

func TestChangeStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, CreateTaskInput{Title: "Mine"})

	_, err := f.tasks.ChangeStatus(ctx, userID, task.ID, "blocked")
	assert.True(t, domain.IsValidation(err))

	_, err = f.tasks.ChangeStatus(ctx, userID, "missing", "doing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, err = f.tasks.ChangeStatus(ctx, "someone-else", task.ID, "doing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestUpdateTask_PriorityChurnAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, CreateTaskInput{Title: "Plan sprint"})

	high := "high"
	updated, err := f.tasks.UpdateTask(ctx, userID, task.ID, TaskUpdateRequest{Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.PriorityChangeCount)

	// same priority again does not count
	updated, err = f.tasks.UpdateTask(ctx, userID, task.ID, TaskUpdateRequest{Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.PriorityChangeCount)

	doing := "doing"
	updated, err = f.tasks.UpdateTask(ctx, userID, task.ID, TaskUpdateRequest{Status: &doing, DueDate: strPtr("2026-10-20")})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDoing, updated.Status)
	assert.True(t, updated.TimeTracking.IsRunning)
	require.NotNil(t, updated.DueDate)

	updated, err = f.tasks.UpdateTask(ctx, userID, task.ID, TaskUpdateRequest{DueDate: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.DueDate)
}

func TestUpdateTask_InvalidStatusWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, CreateTaskInput{Title: "Plan sprint"})

	title := "Renamed"
	bogus := "blocked"
	_, err := f.tasks.UpdateTask(ctx, userID, task.ID, TaskUpdateRequest{Title: &title, Status: &bogus})
	assert.True(t, domain.IsValidation(err))

	stored, err := f.tasks.GetTaskByID(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan sprint", stored.Title)
}

func TestTimeTrackingOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, CreateTaskInput{Title: "Track me"})

	_, err := f.tasks.SetTrackedMinutes(ctx, userID, task.ID, -1)
	assert.True(t, domain.IsValidation(err))

	updated, err := f.tasks.SetTrackedMinutes(ctx, userID, task.ID, 90)
	require.NoError(t, err)
	assert.EqualValues(t, 5400, updated.TimeTracking.TotalSeconds)

	updated, err = f.tasks.ResetTimeTracking(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Zero(t, updated.TimeTracking.TotalSeconds)
	assert.Empty(t, updated.TimeTracking.Sessions)
}

func TestGetTaskDetail_LiveTotal(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, CreateTaskInput{Title: "Running"})
	f.status(t, task.ID, domain.TaskStatusDoing)
	f.clock.Advance(5 * time.Minute)

	detail, err := f.tasks.GetTaskDetail(context.Background(), userID, task.ID)

	require.NoError(t, err)
	assert.EqualValues(t, 300, detail.LiveTrackedSeconds)
	assert.EqualValues(t, 0, detail.Task.TimeTracking.TotalSeconds)
}

func TestReflectionAndFollowUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, CreateTaskInput{Title: "Launch", Priority: "high"})

	withSubtasks, err := f.tasks.AddSubtask(ctx, userID, task.ID, "Write copy")
	require.NoError(t, err)
	first := withSubtasks.Subtasks[0].ID
	_, err = f.tasks.AddSubtask(ctx, userID, task.ID, "Record demo")
	require.NoError(t, err)
	_, err = f.tasks.SetSubtaskDone(ctx, userID, task.ID, first, true)
	require.NoError(t, err)

	change := f.status(t, task.ID, domain.TaskStatusDone)
	assert.True(t, change.ReflectionTriggered)

	reflected, err := f.tasks.SaveReflection(ctx, userID, task.ID, "Demo slipped")
	require.NoError(t, err)
	require.NotNil(t, reflected.CompletionReflection)
	assert.Equal(t, 50, reflected.CompletionReflection.CompletionRate)

	result, err := f.tasks.CreateFollowUp(ctx, userID, task.ID)
	require.NoError(t, err)

	follow := result.FollowUp
	assert.Equal(t, "Follow-up: Launch", follow.Title)
	assert.Equal(t, domain.TaskStatusTodo, follow.Status)
	assert.Equal(t, domain.PriorityHigh, follow.Priority)
	require.Len(t, follow.Subtasks, 1)
	assert.Equal(t, "Record demo", follow.Subtasks[0].Title)
	require.NotNil(t, follow.OriginalTaskID)
	assert.Equal(t, task.ID, *follow.OriginalTaskID)
	require.NotNil(t, follow.DueDate)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), *follow.DueDate)

	assert.True(t, result.Original.CompletionReflection.AutoSuggestionsAccepted)
	assert.Equal(t, "Demo slipped", result.Original.CompletionReflection.Notes)

	stored, err := f.tasks.GetTaskByID(ctx, userID, follow.ID)
	require.NoError(t, err)
	assert.Equal(t, follow.Title, stored.Title)
}

func TestCreateFollowUp_NothingToCarry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, CreateTaskInput{Title: "Tiny"})

	_, err := f.tasks.CreateFollowUp(ctx, userID, task.ID)
	assert.True(t, domain.IsValidation(err))

	_, total, err := f.tasks.GetUserTasks(ctx, userID, nil, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestSubtaskErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, CreateTaskInput{Title: "Checklist"})

	_, err := f.tasks.SetSubtaskDone(ctx, userID, task.ID, "nope", true)
	assert.ErrorIs(t, err, domain.ErrSubtaskNotFound)

	_, err = f.tasks.AddSubtask(ctx, userID, task.ID, "  ")
	assert.True(t, domain.IsValidation(err))
}

func TestGetUserTasks_FilterAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		f.create(t, CreateTaskInput{Title: title})
	}
	doing := f.create(t, CreateTaskInput{Title: "d"})
	f.status(t, doing.ID, domain.TaskStatusDoing)

	tasks, total, err := f.tasks.GetUserTasks(ctx, userID, strPtr("todo"), 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, tasks, 2)

	_, _, err = f.tasks.GetUserTasks(ctx, userID, strPtr("blocked"), 0, 0)
	assert.True(t, domain.IsValidation(err))
}

func TestSearchTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, CreateTaskInput{Title: "Buy groceries"})
	f.create(t, CreateTaskInput{Title: "Call plumber", Description: "ask about groceries delivery too"})
	f.create(t, CreateTaskInput{Title: "Renew passport"})

	results, err := f.tasks.SearchTasks(ctx, userID, "grocries", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Buy groceries", results[0].Task.Title)

	_, err = f.tasks.SearchTasks(ctx, userID, " ", 10)
	assert.True(t, domain.IsValidation(err))
}

func TestFrictionReport_SortedByScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	calm := f.create(t, CreateTaskInput{Title: "Calm"})
	late := f.create(t, CreateTaskInput{Title: "Late", DueDate: strPtr("2026-10-10")})
	finished := f.create(t, CreateTaskInput{Title: "Finished"})
	f.status(t, finished.ID, domain.TaskStatusDone)

	report, err := f.tasks.GetFrictionReport(ctx, userID)

	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, late.ID, report[0].TaskID)
	assert.Equal(t, calm.ID, report[1].TaskID)
	assert.Greater(t, report[0].Score, report[1].Score)
}

func TestEstimationStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	accurate := f.create(t, CreateTaskInput{Title: "On point", EstimatedMinutes: 30})
	f.status(t, accurate.ID, domain.TaskStatusDoing)
	f.clock.Advance(30 * time.Minute)
	f.status(t, accurate.ID, domain.TaskStatusDone)

	untracked := f.create(t, CreateTaskInput{Title: "No timer", EstimatedMinutes: 30})
	f.status(t, untracked.ID, domain.TaskStatusDone)

	stats, err := f.tasks.GetEstimationStats(ctx, userID)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.CompletedTasks)
	assert.Equal(t, 1, stats.EvaluatedTasks)
	assert.Equal(t, 1, stats.ByCategory[domain.EstimationAccurate])
	assert.InDelta(t, 0, stats.AverageDeltaPercent, 0.001)
}

func TestGenerateWeeklyPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, CreateTaskInput{Title: "A", Priority: "urgent", EstimatedMinutes: 60})
	b := f.create(t, CreateTaskInput{Title: "B", Priority: "high", EstimatedMinutes: 30})
	c := f.create(t, CreateTaskInput{Title: "C", Priority: "medium", EstimatedMinutes: 30})
	done := f.create(t, CreateTaskInput{Title: "Done already"})
	f.status(t, done.ID, domain.TaskStatusDone)

	plan, err := f.planner.GenerateWeeklyPlan(ctx, userID, PlanRequest{DailyCapacity: 90})

	require.NoError(t, err)
	assert.Equal(t, "2026-10-12", plan.Days[0].Date)
	require.Len(t, plan.Days[0].Tasks, 2)
	assert.Equal(t, a.ID, plan.Days[0].Tasks[0].TaskID)
	assert.Equal(t, b.ID, plan.Days[0].Tasks[1].TaskID)
	assert.Equal(t, 90, plan.Days[0].TotalMinutes)
	require.Len(t, plan.Days[1].Tasks, 1)
	assert.Equal(t, c.ID, plan.Days[1].Tasks[0].TaskID)
	assert.Empty(t, plan.Unassigned)
}

func TestGenerateWeeklyPlan_DefaultCapacityAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, CreateTaskInput{Title: "A"})

	plan, err := f.planner.GenerateWeeklyPlan(ctx, userID, PlanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 480, plan.DailyCapacity)

	_, err = f.planner.GenerateWeeklyPlan(ctx, userID, PlanRequest{LockedDays: []int{7}})
	assert.True(t, domain.IsValidation(err))

	_, err = f.planner.GenerateWeeklyPlan(ctx, userID, PlanRequest{DailyCapacity: -1})
	assert.True(t, domain.IsValidation(err))
}

func TestAcceptWeeklyPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, CreateTaskInput{Title: "A"})
	b := f.create(t, CreateTaskInput{Title: "B"})

	updated, err := f.planner.AcceptWeeklyPlan(ctx, userID, []planner.Assignment{
		{TaskID: a.ID, Date: "2026-10-13"},
		{TaskID: b.ID, Date: "2026-10-17"},
	})

	require.NoError(t, err)
	require.Len(t, updated, 2)
	require.NotNil(t, updated[0].StartAt)
	assert.Equal(t, time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC), *updated[0].StartAt)
	require.Len(t, f.notifier.plans, 1)
	assert.Len(t, f.notifier.plans[0], 2)

	// anchored tasks come back pinned on the next plan
	plan, err := f.planner.GenerateWeeklyPlan(ctx, userID, PlanRequest{DailyCapacity: 60})
	require.NoError(t, err)
	require.Len(t, plan.Days[1].Tasks, 1)
	assert.True(t, plan.Days[1].Tasks[0].Locked)
}

func TestAcceptWeeklyPlan_RejectsOutOfWeekDateBeforeWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, CreateTaskInput{Title: "A"})
	b := f.create(t, CreateTaskInput{Title: "B"})

	_, err := f.planner.AcceptWeeklyPlan(ctx, userID, []planner.Assignment{
		{TaskID: a.ID, Date: "2026-10-13"},
		{TaskID: b.ID, Date: "2026-10-19"},
	})
	assert.True(t, domain.IsValidation(err))

	stored, err := f.tasks.GetTaskByID(ctx, userID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.StartAt)
	assert.Empty(t, f.notifier.plans)
}
