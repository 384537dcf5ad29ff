package lifecycle

import (
	"math"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/tracking"
)

// accurateBandPercent is the symmetric tolerance for an "accurate" estimate
const accurateBandPercent = 10.0

// ResolveActualMinutes prefers the manual override, then the tracked
// total. Nil when neither is available.
func ResolveActualMinutes(task *domain.Task) *int {
	if task.ActualMinutes != nil {
		v := *task.ActualMinutes
		return &v
	}
	if task.TimeTracking.TotalSeconds > 0 {
		v := tracking.TrackedMinutes(task.TimeTracking)
		return &v
	}
	return nil
}

// ComputeEstimation compares estimate and actual. Nil unless the estimate
// is positive and an actual value is known.
func ComputeEstimation(estimated int, actual *int) *domain.EstimationResult {
	if estimated <= 0 || actual == nil {
		return nil
	}

	delta := *actual - estimated
	deltaPercent := float64(delta) / float64(estimated) * 100
	absPercent := math.Abs(deltaPercent)

	category := domain.EstimationAccurate
	switch {
	case absPercent <= accurateBandPercent:
	case delta > 0:
		category = domain.EstimationUnderestimated
	default:
		category = domain.EstimationOverestimated
	}

	return &domain.EstimationResult{
		EstimatedMinutes: estimated,
		ActualMinutes:    *actual,
		DeltaMinutes:     delta,
		DeltaPercent:     roundTo(deltaPercent, 2),
		Category:         category,
		AccuracyScore:    roundTo(clamp(100-absPercent, 0, 100), 2),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
