package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chart-back/internal/cache"
	"github.com/chart-back/internal/messaging"
	"github.com/chart-back/pkg/models"
)

// MaxWidgets bounds the number of concurrently running pipelines.
const MaxWidgets = 9

var (
	// ErrWidgetLimit is returned when the widget collection is full.
	ErrWidgetLimit = fmt.Errorf("maximum of %d concurrent widgets reached", MaxWidgets)
	// ErrEmptySymbol is returned for a blank symbol.
	ErrEmptySymbol = errors.New("symbol is required")
	// ErrWidgetNotFound is returned for an unknown widget id.
	ErrWidgetNotFound = errors.New("widget not found")
)

// Manager owns the widget collection: one pipeline per visible chart,
// independent of each other, sharing no mutable state.
type Manager struct {
	history  HistorySource
	openFeed FeedOpenFunc
	cache    *cache.RedisClient // optional
	bus      *messaging.Client  // optional
	logger   *logrus.Entry
	log      *logrus.Logger

	mu      sync.RWMutex
	widgets map[int]*Pipeline
	nextID  int
}

// NewManager creates a widget manager. Cache and bus may be nil.
func NewManager(history HistorySource, openFeed FeedOpenFunc, cache *cache.RedisClient, bus *messaging.Client, logger *logrus.Logger) *Manager {
	return &Manager{
		history:  history,
		openFeed: openFeed,
		cache:    cache,
		bus:      bus,
		logger:   logger.WithField("component", "widgets"),
		log:      logger,
		widgets:  make(map[int]*Pipeline),
	}
}

// Add creates and starts a pipeline for a symbol. Symbols are upcased to
// match the upstream's ticker normalization. An empty range token falls
// back to the resolver default behavior downstream.
func (m *Manager) Add(symbol string, rng models.RangeToken) (models.WidgetSnapshot, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return models.WidgetSnapshot{}, ErrEmptySymbol
	}
	if rng == "" {
		rng = models.Range1D
	}

	m.mu.Lock()
	if len(m.widgets) >= MaxWidgets {
		m.mu.Unlock()
		return models.WidgetSnapshot{}, ErrWidgetLimit
	}
	m.nextID++
	id := m.nextID

	p := New(id, symbol, rng, m.history, m.openFeed, m.log)
	m.warmStart(p, symbol, rng)
	p.OnUpdate(m.handleUpdate)
	m.widgets[id] = p
	m.mu.Unlock()

	p.Start()

	m.logger.WithFields(logrus.Fields{
		"widget": id,
		"symbol": symbol,
		"range":  rng,
	}).Info("Widget added")

	return p.Snapshot(), nil
}

// Remove tears a widget down.
func (m *Manager) Remove(id int) error {
	m.mu.Lock()
	p, ok := m.widgets[id]
	if ok {
		delete(m.widgets, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrWidgetNotFound
	}

	p.Stop()
	m.logger.WithField("widget", id).Info("Widget removed")
	return nil
}

// Get returns the pipeline for a widget id.
func (m *Manager) Get(id int) (*Pipeline, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.widgets[id]
	return p, ok
}

// SetRange retargets a widget's range.
func (m *Manager) SetRange(id int, rng models.RangeToken) error {
	p, ok := m.Get(id)
	if !ok {
		return ErrWidgetNotFound
	}
	p.SetRange(rng)
	return nil
}

// SetSymbol retargets a widget's symbol.
func (m *Manager) SetSymbol(id int, symbol string) error {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return ErrEmptySymbol
	}
	p, ok := m.Get(id)
	if !ok {
		return ErrWidgetNotFound
	}
	p.SetSymbol(symbol)
	return nil
}

// Snapshots returns all widget snapshots ordered by id.
func (m *Manager) Snapshots() []models.WidgetSnapshot {
	m.mu.RLock()
	pipelines := make([]*Pipeline, 0, len(m.widgets))
	for _, p := range m.widgets {
		pipelines = append(pipelines, p)
	}
	m.mu.RUnlock()

	sort.Slice(pipelines, func(i, j int) bool { return pipelines[i].ID() < pipelines[j].ID() })

	out := make([]models.WidgetSnapshot, len(pipelines))
	for i, p := range pipelines {
		out[i] = p.Snapshot()
	}
	return out
}

// Count returns the number of active widgets.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.widgets)
}

// Close stops every pipeline.
func (m *Manager) Close() {
	m.mu.Lock()
	pipelines := make([]*Pipeline, 0, len(m.widgets))
	for id, p := range m.widgets {
		pipelines = append(pipelines, p)
		delete(m.widgets, id)
	}
	m.mu.Unlock()

	for _, p := range pipelines {
		p.Stop()
	}
}

// warmStart seeds a new pipeline from the cache so the widget is not
// blank while its first history fetch runs.
func (m *Manager) warmStart(p *Pipeline, symbol string, rng models.RangeToken) {
	if m.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	points, err := m.cache.GetSeries(ctx, symbol, rng)
	if err != nil {
		m.logger.WithError(err).Debug("Warm-start lookup failed")
		return
	}
	if len(points) > 0 {
		p.Warm(points)
	}
}

// handleUpdate fans a published snapshot out to the cache and the bus.
// Failures are logged; the pipeline itself never depends on either sink.
func (m *Manager) handleUpdate(snap models.WidgetSnapshot) {
	if m.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := m.cache.SetSeries(ctx, snap.Symbol, snap.Range, snap.Series); err != nil {
			m.logger.WithError(err).Debug("Failed to cache series")
		}
		if snap.Tick != nil {
			if err := m.cache.SetTick(ctx, snap.Symbol, snap.Tick); err != nil {
				m.logger.WithError(err).Debug("Failed to cache tick")
			}
		}
		cancel()
	}

	if m.bus != nil {
		if snap.Tick != nil {
			if err := m.bus.PublishTick(snap.Symbol, snap.Tick); err != nil {
				m.logger.WithError(err).Debug("Failed to publish tick")
			}
		}
		if err := m.bus.PublishSeriesUpdate(&snap); err != nil {
			m.logger.WithError(err).Debug("Failed to publish series update")
		}
	}
}

// normalizeSymbol trims and upcases a ticker, matching the upstream
// service's normalization.
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
