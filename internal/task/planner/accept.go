package planner

import (
	"time"

	"taskflow-backend/internal/task/domain"
)

// Assignment anchors a task to a day of the current week
type Assignment struct {
	TaskID string `json:"task_id" binding:"required"`
	Date   string `json:"date" binding:"required"`
}

// ResolveAssignmentDate parses a YYYY-MM-DD date into local midnight and
// checks that it falls inside the week starting at weekStart.
func ResolveAssignmentDate(date string, weekStart time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", "%q is not a YYYY-MM-DD date", date)
	}
	if idx := DayIndex(day, weekStart, loc); idx < 0 || idx >= DaysPerWeek {
		return time.Time{}, domain.NewValidationError("date", "%s is outside the week of %s", date, weekStart.Format(DateLayout))
	}
	return day, nil
}
