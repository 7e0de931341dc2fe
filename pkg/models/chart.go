package models

// RangeToken is the user-selected chart zoom/granularity selector.
type RangeToken string

const (
	Range1s  RangeToken = "1s"
	Range15m RangeToken = "15m"
	Range1H  RangeToken = "1H"
	Range1D  RangeToken = "1D"
	Range1W  RangeToken = "1W"
	Range1M  RangeToken = "1M"
	Range1Y  RangeToken = "1Y"
)

// FineGrained reports whether the range is dense enough to draw
// quarter-hour boundary markers.
func (r RangeToken) FineGrained() bool {
	switch r {
	case Range1s, Range15m, Range1H:
		return true
	}
	return false
}

// PricePoint is one chart-plottable sample. Time is seconds since epoch
// and is the unique key within a series.
type PricePoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Tick is one live price update from the streaming feed. Timestamp is
// milliseconds since epoch.
type Tick struct {
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	Timestamp int64   `json:"timestamp"`
}

// Point converts the tick into a series candidate, collapsing the
// millisecond timestamp to seconds.
func (t *Tick) Point() PricePoint {
	return PricePoint{
		Time:  t.Timestamp / 1000,
		Value: t.Price,
	}
}

// Marker is a derived annotation flagging a 15-minute bucket boundary.
type Marker struct {
	Time  int64 `json:"time"`
	Value int   `json:"value"`
}

// ConnectionStatus represents a live feed connection state.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)
