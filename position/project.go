// Package position implements the single projection formula spec.md §4.3
// defines, shared by groupstate (drift checks) and suspension (resume
// reconciliation) so there is exactly one place that extrapolates a peer's
// current position from its last report.
package position

import "github.com/syncplay/coordinator/model"

// Project extrapolates record's position forward to now (a reference
// timestamp in milliseconds), clamped to [0, +inf). If the peer isn't
// playing, its position doesn't move between reports.
func Project(record model.GroupPositionRecord, nowMillis int64) float64 {
	if record.PlaybackState != model.PlaybackPlaying {
		return clamp(record.PositionAtTimestamp)
	}
	elapsedSeconds := float64(nowMillis-record.Timestamp) / 1000.0
	return clamp(record.PositionAtTimestamp + elapsedSeconds*record.PlaybackRate)
}

func clamp(position float64) float64 {
	if position < 0 {
		return 0
	}
	return position
}

// Median returns the median of a non-empty slice of positions. Callers
// (groupstate's drift check, §4.3 step 3) are expected to pass only the
// positions of peers in the `playing` state.
func Median(positions []float64) float64 {
	if len(positions) == 0 {
		return 0
	}
	sorted := append([]float64(nil), positions...)
	insertionSort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// insertionSort is sufficient here: callers pass one value per live peer,
// a small set in any realistic session.
func insertionSort(s []float64) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}
