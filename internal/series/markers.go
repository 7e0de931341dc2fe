package series

import (
	"time"

	"github.com/chart-back/pkg/models"
)

// bucketMinutes is the marker bucket size in wall-clock minutes.
const bucketMinutes = 15

// Markers derives quarter-hour boundary annotations for a reconciled
// series. Markers are produced only for fine-grained ranges; coarser
// ranges always yield an empty set so stale markers never survive a
// range switch.
//
// A point qualifies when its local wall-clock minute is divisible by 15.
// At most one marker is emitted per (hour, minute) bucket, at the time
// of the first qualifying point in that bucket.
func Markers(pts []models.PricePoint, token models.RangeToken) []models.Marker {
	if !token.FineGrained() {
		return nil
	}

	seen := make(map[int]struct{})
	var out []models.Marker
	for _, p := range pts {
		t := time.Unix(p.Time, 0)
		minute := t.Minute()
		if minute%bucketMinutes != 0 {
			continue
		}
		key := t.Hour()*60 + minute
		if _, marked := seen[key]; marked {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, models.Marker{Time: p.Time, Value: 1})
	}
	return out
}
