// Package pipeline owns the per-widget ingestion lifecycle: it drives the
// history fetch and the live feed connection for one symbol+range pair,
// feeds the series reconciler, and exposes the reconciled output to the
// rendering boundary.
package pipeline

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/chart-back/internal/feed"
	"github.com/chart-back/internal/series"
	"github.com/chart-back/internal/timerange"
	"github.com/chart-back/pkg/models"
)

// HistorySource is the one-shot historical fetch collaborator.
type HistorySource interface {
	FetchHistory(ctx context.Context, symbol, period, interval string) ([]models.PricePoint, error)
}

// FeedOpenFunc opens a live feed connection for a symbol. The returned
// closer must tolerate repeated Close calls.
type FeedOpenFunc func(symbol string, h feed.Handlers) (io.Closer, error)

type eventKind int

const (
	evSeed eventKind = iota
	evTick
	evStatus
	evConn
	evRetarget
)

// event is one unit of work for the pipeline actor. All carry the
// generation they were produced for so stale producers are discarded.
type event struct {
	kind   eventKind
	gen    uint64
	points []models.PricePoint
	tick   models.Tick
	status models.ConnectionStatus
	conn   io.Closer
	symbol string
	rng    models.RangeToken
}

// UpdateFunc observes every published snapshot.
type UpdateFunc func(models.WidgetSnapshot)

// Pipeline reconciles history and live ticks for one chart widget. All
// state mutation happens on a single actor goroutine; history responses,
// feed callbacks and retargets are serialized through one event channel,
// so the reconciler never runs concurrently with itself for a widget.
type Pipeline struct {
	id       int
	history  HistorySource
	openFeed FeedOpenFunc
	logger   *logrus.Entry

	events chan event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	stop   sync.Once

	// Actor-owned state. Touched only by run().
	symbol  string
	rng     models.RangeToken
	gen     uint64
	points  []models.PricePoint
	markers []models.Marker
	tick    *models.Tick
	status  models.ConnectionStatus
	pending []models.PricePoint
	seeded  bool
	conn    io.Closer

	mu       sync.RWMutex
	snap     models.WidgetSnapshot
	onUpdate []UpdateFunc
	subs     map[chan models.WidgetSnapshot]struct{}
}

// New creates a pipeline for a symbol+range pair. Start must be called
// before the pipeline produces anything.
func New(id int, symbol string, rng models.RangeToken, history HistorySource, openFeed FeedOpenFunc, logger *logrus.Logger) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pipeline{
		id:       id,
		history:  history,
		openFeed: openFeed,
		logger: logger.WithFields(logrus.Fields{
			"component": "pipeline",
			"widget":    id,
		}),
		events: make(chan event, 256),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		symbol: symbol,
		rng:    rng,
		status: models.StatusConnecting,
		subs:   make(map[chan models.WidgetSnapshot]struct{}),
	}
	p.storeSnapshot()
	return p
}

// Warm pre-seeds the displayed series with cached points so the widget
// shows stale-but-present data while the real history fetch is in
// flight. Must be called before Start.
func (p *Pipeline) Warm(points []models.PricePoint) {
	p.points = series.Reconcile(points)
	p.storeSnapshot()
}

// OnUpdate registers an observer for published snapshots. Must be called
// before Start; observers run on the actor goroutine.
func (p *Pipeline) OnUpdate(fn UpdateFunc) {
	p.onUpdate = append(p.onUpdate, fn)
}

// Start launches the actor and kicks off the initial load.
func (p *Pipeline) Start() {
	go p.run()
	p.post(event{kind: evRetarget, symbol: p.symbol, rng: p.rng})
}

// Stop tears the pipeline down: the feed connection is closed and any
// in-flight history response is discarded. Safe to call more than once.
func (p *Pipeline) Stop() {
	p.stop.Do(func() {
		p.cancel()
		<-p.done
	})
}

// ID returns the widget id.
func (p *Pipeline) ID() int { return p.id }

// Snapshot returns the current reconciled state.
func (p *Pipeline) Snapshot() models.WidgetSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// SetRange retargets the pipeline to a new range token, restarting both
// sources for the current symbol.
func (p *Pipeline) SetRange(rng models.RangeToken) {
	p.post(event{kind: evRetarget, rng: rng})
}

// SetSymbol retargets the pipeline to a new symbol, restarting both
// sources for the current range.
func (p *Pipeline) SetSymbol(symbol string) {
	p.post(event{kind: evRetarget, symbol: symbol})
}

// Subscribe returns a channel receiving every published snapshot and a
// cancel function. Slow receivers miss intermediate snapshots rather
// than blocking the pipeline.
func (p *Pipeline) Subscribe() (<-chan models.WidgetSnapshot, func()) {
	ch := make(chan models.WidgetSnapshot, 8)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
}

// post hands an event to the actor unless the pipeline already stopped.
// A dropped evConn must not strand its connection.
func (p *Pipeline) post(e event) {
	select {
	case p.events <- e:
	case <-p.done:
		if e.kind == evConn && e.conn != nil {
			e.conn.Close()
		}
	}
}

// run is the actor loop.
func (p *Pipeline) run() {
	defer func() {
		if p.conn != nil {
			p.conn.Close()
		}
		p.closeSubscribers()
		close(p.done)
		// Connections that were queued but never handled still need
		// closing.
		for {
			select {
			case e := <-p.events:
				if e.kind == evConn && e.conn != nil {
					e.conn.Close()
				}
			default:
				return
			}
		}
	}()

	for {
		select {
		case <-p.ctx.Done():
			return
		case e := <-p.events:
			p.handle(e)
		}
	}
}

func (p *Pipeline) handle(e event) {
	if e.kind != evRetarget && e.gen != p.gen {
		// Producer belongs to a superseded symbol/range pairing.
		if e.kind == evConn && e.conn != nil {
			e.conn.Close()
		}
		if e.kind == evSeed {
			p.logger.WithField("points", len(e.points)).Debug("Discarding stale history response")
		}
		return
	}

	switch e.kind {
	case evRetarget:
		p.retarget(e.symbol, e.rng)
	case evSeed:
		p.seed(e.points)
	case evTick:
		p.applyTick(e.tick)
	case evStatus:
		p.status = e.status
		p.publish()
	case evConn:
		p.conn = e.conn
	}
}

// retarget restarts both sources for a new symbol/range pairing. Empty
// fields keep the current value. The displayed series survives until the
// new seed arrives; a blank chart is worse than a stale one.
func (p *Pipeline) retarget(symbol string, rng models.RangeToken) {
	if symbol == "" {
		symbol = p.symbol
	}
	if rng == "" {
		rng = p.rng
	}

	p.gen++
	gen := p.gen

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}

	p.symbol = symbol
	p.rng = rng
	p.seeded = false
	p.pending = nil
	p.status = models.StatusConnecting
	p.markers = series.Markers(p.points, rng)

	p.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"range":  rng,
	}).Info("Pipeline targeting")

	// History fetch and feed open are independent; neither waits on the
	// other.
	go p.fetchHistory(gen, symbol, rng)
	go p.openConnection(gen, symbol)

	p.publish()
}

// fetchHistory resolves the range and performs the one-shot fetch. On
// failure the previously displayed series stays untouched.
func (p *Pipeline) fetchHistory(gen uint64, symbol string, rng models.RangeToken) {
	params := timerange.Resolve(rng)

	points, err := p.history.FetchHistory(p.ctx, symbol, params.Period, params.Interval)
	if err != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Error("Failed to fetch history")
		return
	}

	p.post(event{kind: evSeed, gen: gen, points: points})
}

// openConnection dials the live feed and wires its callbacks back into
// the event loop, stamped with the generation they serve.
func (p *Pipeline) openConnection(gen uint64, symbol string) {
	conn, err := p.openFeed(symbol, feed.Handlers{
		OnOpen: func() {
			p.post(event{kind: evStatus, gen: gen, status: models.StatusConnected})
		},
		OnMessage: func(tick models.Tick) {
			p.post(event{kind: evTick, gen: gen, tick: tick})
		},
		OnClose: func() {
			p.post(event{kind: evStatus, gen: gen, status: models.StatusDisconnected})
		},
	})
	if err != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Error("Failed to open live feed")
		p.post(event{kind: evStatus, gen: gen, status: models.StatusDisconnected})
		return
	}

	p.post(event{kind: evConn, gen: gen, conn: conn})
}

// seed reconciles the historical fetch with any ticks that raced ahead
// of it. Ticks come after history in the candidate order, so they win
// same-second collisions.
func (p *Pipeline) seed(points []models.PricePoint) {
	candidates := make([]models.PricePoint, 0, len(points)+len(p.pending))
	candidates = append(candidates, points...)
	candidates = append(candidates, p.pending...)

	p.points = series.Reconcile(candidates)
	p.markers = series.Markers(p.points, p.rng)
	p.seeded = true
	p.pending = nil

	p.publish()
}

// applyTick merges one live tick into the series. Ticks arriving before
// the seed are additionally buffered so the seed reconciliation does not
// drop them.
func (p *Pipeline) applyTick(tick models.Tick) {
	p.tick = &tick

	pt := tick.Point()
	if !p.seeded {
		p.pending = append(p.pending, pt)
	}

	p.points = series.Append(p.points, pt)
	p.markers = series.Markers(p.points, p.rng)

	p.publish()
}

// storeSnapshot refreshes the published snapshot from actor state.
func (p *Pipeline) storeSnapshot() models.WidgetSnapshot {
	pts := make([]models.PricePoint, len(p.points))
	copy(pts, p.points)
	markers := make([]models.Marker, len(p.markers))
	copy(markers, p.markers)

	snap := models.WidgetSnapshot{
		ID:      p.id,
		Symbol:  p.symbol,
		Range:   p.rng,
		Series:  pts,
		Markers: markers,
		Tick:    p.tick,
		Status:  p.status,
	}

	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()

	return snap
}

// publish stores the snapshot and notifies observers and subscribers.
func (p *Pipeline) publish() {
	snap := p.storeSnapshot()

	for _, fn := range p.onUpdate {
		fn(snap)
	}

	p.mu.RLock()
	for ch := range p.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	p.mu.RUnlock()
}

func (p *Pipeline) closeSubscribers() {
	p.mu.Lock()
	for ch := range p.subs {
		delete(p.subs, ch)
		close(ch)
	}
	p.mu.Unlock()
}
