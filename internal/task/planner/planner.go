// Package planner builds a capacity-bounded Monday to Sunday schedule from
// the open tasks of one user. Plans are ephemeral: every call recomputes
// from scratch and nothing is persisted until a plan is accepted.
package planner

import (
	"sort"
	"time"

	"taskflow-backend/internal/task/domain"
)

const (
	DaysPerWeek        = 7
	DefaultTaskMinutes = 30
	DateLayout         = "2006-01-02"
)

var dayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Input is everything a planning run depends on. Identical inputs always
// produce identical plans.
type Input struct {
	Now           time.Time
	Location      *time.Location
	DailyCapacity int
	// LockedDays are day indexes (0 = Monday) closed to new assignments
	LockedDays []int
	Tasks      []*domain.Task
}

// PlannedTask is a task placed on (or left off) the week
type PlannedTask struct {
	TaskID   string            `json:"task_id"`
	Title    string            `json:"title"`
	Status   domain.TaskStatus `json:"status"`
	Priority domain.Priority   `json:"priority"`
	DueDate  *time.Time        `json:"due_date,omitempty"`
	Minutes  int               `json:"minutes"`
	// Locked tasks were already anchored to this day before planning
	Locked bool `json:"locked"`
}

type DayPlan struct {
	Day          string        `json:"day"`
	Date         string        `json:"date"`
	Locked       bool          `json:"locked"`
	Tasks        []PlannedTask `json:"tasks"`
	TotalMinutes int           `json:"total_minutes"`
}

type WeeklyPlan struct {
	WeekStart     time.Time     `json:"week_start"`
	WeekEnd       time.Time     `json:"week_end"`
	DailyCapacity int           `json:"daily_capacity"`
	Days          []DayPlan     `json:"days"`
	Unassigned    []PlannedTask `json:"unassigned"`
}

// WeekWindow returns Monday 00:00 of the week containing now and the
// following Monday 00:00 (exclusive end), both in loc.
func WeekWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	offset := (int(local.Weekday()) + 6) % 7 // Monday = 0
	start := time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, DaysPerWeek)
}

// DayIndex is the number of calendar days from weekStart to t in loc.
// Values outside 0..6 mean t is not in that week.
func DayIndex(t, weekStart time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	a := t.In(loc)
	b := weekStart.In(loc)
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(da.Sub(db).Hours() / 24)
}

// TaskMinutes is the capacity a task consumes
func TaskMinutes(task *domain.Task) int {
	if task.EstimatedMinutes > 0 {
		return task.EstimatedMinutes
	}
	return DefaultTaskMinutes
}

// IsCandidate reports whether task takes part in planning the week that
// starts at weekStart: open, and not anchored before the week.
func IsCandidate(task *domain.Task, weekStart time.Time) bool {
	if !task.Status.IsOpen() {
		return false
	}
	return task.StartAt == nil || !task.StartAt.Before(weekStart)
}

// Plan assigns candidates to days. A day's running total never exceeds
// DailyCapacity through new assignments; tasks that fit nowhere are
// reported in Unassigned.
func Plan(in Input) *WeeklyPlan {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	start, end := WeekWindow(in.Now, loc)

	var lockedDay [DaysPerWeek]bool
	for _, d := range in.LockedDays {
		if d >= 0 && d < DaysPerWeek {
			lockedDay[d] = true
		}
	}

	plan := &WeeklyPlan{
		WeekStart:     start,
		WeekEnd:       end,
		DailyCapacity: in.DailyCapacity,
		Days:          make([]DayPlan, DaysPerWeek),
		Unassigned:    []PlannedTask{},
	}
	for i := range plan.Days {
		plan.Days[i] = DayPlan{
			Day:    dayNames[i],
			Date:   start.AddDate(0, 0, i).Format(DateLayout),
			Locked: lockedDay[i],
			Tasks:  []PlannedTask{},
		}
	}

	var pending []*domain.Task
	for _, task := range in.Tasks {
		if !IsCandidate(task, start) {
			continue
		}
		if task.StartAt != nil && task.StartAt.Before(end) {
			// already anchored inside the week: pinned, but still consumes capacity
			plan.place(DayIndex(*task.StartAt, start, loc), task, true)
			continue
		}
		pending = append(pending, task)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return before(pending[i], pending[j])
	})

	for _, task := range pending {
		cost := TaskMinutes(task)
		fits := func(d int) bool {
			return !lockedDay[d] && plan.Days[d].TotalMinutes+cost <= in.DailyCapacity
		}

		day := -1
		if task.DueDate != nil && !task.DueDate.Before(start) && task.DueDate.Before(end) {
			if d := DayIndex(*task.DueDate, start, loc); fits(d) {
				day = d
			}
		}
		if day < 0 {
			for d := 0; d < DaysPerWeek; d++ {
				if fits(d) {
					day = d
					break
				}
			}
		}

		if day < 0 {
			plan.Unassigned = append(plan.Unassigned, planned(task, false))
			continue
		}
		plan.place(day, task, false)
	}

	return plan
}

func (p *WeeklyPlan) place(day int, task *domain.Task, locked bool) {
	p.Days[day].Tasks = append(p.Days[day].Tasks, planned(task, locked))
	p.Days[day].TotalMinutes += TaskMinutes(task)
}

func planned(task *domain.Task, locked bool) PlannedTask {
	return PlannedTask{
		TaskID:   task.ID,
		Title:    task.Title,
		Status:   task.Status,
		Priority: task.Priority,
		DueDate:  task.DueDate,
		Minutes:  TaskMinutes(task),
		Locked:   locked,
	}
}

// before orders by priority weight desc, then due date asc with dated
// tasks ahead of undated ones.
func before(a, b *domain.Task) bool {
	if wa, wb := a.Priority.Weight(), b.Priority.Weight(); wa != wb {
		return wa > wb
	}
	switch {
	case a.DueDate != nil && b.DueDate != nil:
		return a.DueDate.Before(*b.DueDate)
	case a.DueDate != nil:
		return true
	default:
		return false
	}
}
