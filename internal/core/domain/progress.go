package domain

import (
	"fmt"
	"math"
	"time"
)

// Progress is the state of a timed pass at a given instant.
type Progress struct {
	// Fraction of the duration that has elapsed, clamped to [0, 1].
	Fraction float64 `json:"fraction"`
	// RemainingMinutes is rounded up, so zero only once the pass has expired.
	RemainingMinutes int `json:"remaining_minutes"`
	RemainingSeconds int `json:"remaining_seconds"`
}

// ComputeProgress returns how far a pass of durationMinutes started at startAt
// has run by now. A non-positive duration never shows progress, and a start
// instant in the future counts as zero elapsed.
func ComputeProgress(startAt time.Time, durationMinutes int, now time.Time) Progress {
	total := max(0, durationMinutes) * 60
	if total == 0 {
		return Progress{}
	}

	elapsed := max(0, int(now.Sub(startAt)/time.Second))
	clamped := min(elapsed, total)
	remaining := total - clamped

	return Progress{
		Fraction:         float64(clamped) / float64(total),
		RemainingMinutes: int(math.Ceil(float64(remaining) / 60)),
		RemainingSeconds: remaining,
	}
}

// Percent is the elapsed fraction as a whole percentage.
func (p Progress) Percent() int {
	return int(math.Round(p.Fraction * 100))
}

// Label renders the remaining time the way the active card shows it.
func (p Progress) Label() string {
	if p.RemainingMinutes == 1 {
		return "1 minute remaining"
	}
	return fmt.Sprintf("%d minutes remaining", p.RemainingMinutes)
}

// Clock renders the remaining time as MM:SS.
func (p Progress) Clock() string {
	s := max(0, p.RemainingSeconds)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// Expired reports whether a timed pass has no time left.
func (p Progress) Expired() bool {
	return p.Fraction >= 1
}
