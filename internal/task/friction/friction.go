// Package friction scores how likely a task is stalling or being mismanaged.
package friction

import (
	"math"
	"time"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/lifecycle"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

type FactorType string

const (
	FactorOverdue          FactorType = "overdue"
	FactorStuckInProgress  FactorType = "stuck_in_doing"
	FactorReopened         FactorType = "reopened"
	FactorPriorityChurn    FactorType = "priority_churn"
	FactorEstimateMismatch FactorType = "estimate_mismatch"
)

const (
	day = 24 * time.Hour

	overduePerDay, overdueCap      = 5.0, 30.0
	stuckAfter                     = 2 * day
	stuckPerDay, stuckCap          = 3.0, 20.0
	reopenPerCount, reopenCap      = 10.0, 25.0
	churnPerCount, churnCap        = 4.0, 15.0
	mismatchThresholdPercent       = 50.0
	mismatchDivisor, mismatchCap   = 5.0, 10.0
	highThreshold, mediumThreshold = 50, 25
)

// Factor explains one contribution. Value is the measured magnitude
// (days, count or percent depending on Type).
type Factor struct {
	Type   FactorType `json:"type"`
	Value  float64    `json:"value"`
	Points float64    `json:"points"`
}

type Result struct {
	Score   int      `json:"score"`
	Level   Level    `json:"level"`
	Factors []Factor `json:"factors"`
}

// Score sums the weighted factors of task at now, clamped to [0, 100]
func Score(task *domain.Task, now time.Time) Result {
	factors := make([]Factor, 0, 5)

	if task.DueDate != nil && task.DueDate.Before(now) && task.Status != domain.TaskStatusDone {
		days := math.Ceil(now.Sub(*task.DueDate).Hours() / 24)
		factors = append(factors, Factor{
			Type:   FactorOverdue,
			Value:  days,
			Points: math.Min(days*overduePerDay, overdueCap),
		})
	}

	if task.Status == domain.TaskStatusDoing && task.LastStatusChangedAt != nil {
		inDoing := now.Sub(*task.LastStatusChangedAt)
		if inDoing > stuckAfter {
			days := math.Floor(inDoing.Hours() / 24)
			factors = append(factors, Factor{
				Type:   FactorStuckInProgress,
				Value:  days,
				Points: math.Min(days*stuckPerDay, stuckCap),
			})
		}
	}

	if task.ReopenCount > 0 {
		n := float64(task.ReopenCount)
		factors = append(factors, Factor{
			Type:   FactorReopened,
			Value:  n,
			Points: math.Min(n*reopenPerCount, reopenCap),
		})
	}

	if task.PriorityChangeCount > 0 {
		n := float64(task.PriorityChangeCount)
		factors = append(factors, Factor{
			Type:   FactorPriorityChurn,
			Value:  n,
			Points: math.Min(n*churnPerCount, churnCap),
		})
	}

	if actual := lifecycle.ResolveActualMinutes(task); actual != nil && task.EstimatedMinutes > 0 {
		est := float64(task.EstimatedMinutes)
		percent := math.Abs(float64(*actual)-est) / est * 100
		if percent > mismatchThresholdPercent {
			factors = append(factors, Factor{
				Type:   FactorEstimateMismatch,
				Value:  math.Round(percent),
				Points: math.Min(percent/mismatchDivisor, mismatchCap),
			})
		}
	}

	total := 0.0
	for _, f := range factors {
		total += f.Points
	}
	score := int(math.Round(math.Max(0, math.Min(total, 100))))

	return Result{Score: score, Level: levelFor(score), Factors: factors}
}

func levelFor(score int) Level {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}
