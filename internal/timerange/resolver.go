// Package timerange maps user-facing range tokens to the historical-fetch
// parameters understood by the upstream price service.
package timerange

import (
	"github.com/chart-back/pkg/models"
)

// Params are the lookback window and sample granularity for a history fetch.
type Params struct {
	Period   string
	Interval string
}

// defaultParams is used for any token outside the known set, so a new
// frontend token degrades to a sane chart instead of an error.
var defaultParams = Params{Period: "1d", Interval: "5m"}

var table = map[models.RangeToken]Params{
	// 1s has no dedicated history granularity upstream; it starts from
	// 1m candles and densifies from live ticks.
	models.Range1s:  {Period: "1d", Interval: "1m"},
	models.Range15m: {Period: "1d", Interval: "5m"},
	models.Range1H:  {Period: "1h", Interval: "1m"},
	models.Range1D:  {Period: "1d", Interval: "5m"},
	models.Range1W:  {Period: "5d", Interval: "1d"},
	models.Range1M:  {Period: "1mo", Interval: "1d"},
	models.Range1Y:  {Period: "1y", Interval: "1d"},
}

// Resolve returns the fetch parameters for a range token. Unknown tokens
// resolve to the default rather than failing.
func Resolve(token models.RangeToken) Params {
	if p, ok := table[token]; ok {
		return p
	}
	return defaultParams
}
