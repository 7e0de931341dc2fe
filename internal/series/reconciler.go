// Package series implements the merge/dedup/cap transform that turns
// historical candles plus live ticks into one displayable series, and the
// derivation of quarter-hour boundary markers.
package series

import (
	"sort"

	"github.com/chart-back/pkg/models"
)

// Cap is the maximum number of points retained in a series. When the
// bound is exceeded the oldest points are evicted first.
const Cap = 3000

// Reconcile merges the candidate points into a chronologically sorted,
// deduplicated, capacity-bounded series.
//
// Candidates are folded in arrival order with the newest write winning
// for points sharing the same second, so a live tick appended after a
// historical bucket at the same timestamp supersedes the historical
// value. The surviving points are sorted ascending by time and trimmed
// to the Cap most recent.
func Reconcile(candidates []models.PricePoint) []models.PricePoint {
	if len(candidates) == 0 {
		return nil
	}

	latest := make(map[int64]float64, len(candidates))
	times := make([]int64, 0, len(candidates))
	for _, p := range candidates {
		if _, seen := latest[p.Time]; !seen {
			times = append(times, p.Time)
		}
		latest[p.Time] = p.Value
	}

	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	if len(times) > Cap {
		times = times[len(times)-Cap:]
	}

	out := make([]models.PricePoint, len(times))
	for i, ts := range times {
		out[i] = models.PricePoint{Time: ts, Value: latest[ts]}
	}
	return out
}

// Append reconciles an existing series with one new point.
func Append(existing []models.PricePoint, pt models.PricePoint) []models.PricePoint {
	candidates := make([]models.PricePoint, 0, len(existing)+1)
	candidates = append(candidates, existing...)
	candidates = append(candidates, pt)
	return Reconcile(candidates)
}
