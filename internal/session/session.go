// Package session ties one UI session together: the two location fields, the
// query orchestrator and a change broadcaster for push updates.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/route-risk/internal/query"
	"github.com/i474232898/route-risk/internal/risk"
	"github.com/i474232898/route-risk/internal/route"
	"github.com/i474232898/route-risk/internal/suggest"
)

// Backend is everything a session needs from the route service.
type Backend interface {
	suggest.Searcher
	query.Planner
	ForecastWeather(ctx context.Context, loc route.Coordinate, start time.Time) (*route.Forecast, error)
}

// Config configures a Session.
type Config struct {
	Debounce    time.Duration
	WindowHours int
	AfterFunc   suggest.AfterFunc
	Classifier  risk.Classifier
	Logger      *slog.Logger
}

// Field identifies a location input.
type Field string

const (
	FieldStart Field = "start"
	FieldEnd   Field = "end"
)

// Snapshot is the full read-only session state.
type Snapshot struct {
	Start suggest.FieldView `json:"start"`
	End   suggest.FieldView `json:"end"`
	query.Snapshot
}

// Session owns the engines and orchestrator of one user.
type Session struct {
	Start        *suggest.Engine
	End          *suggest.Engine
	Orchestrator *query.Orchestrator
	Classifier   risk.Classifier

	backend Backend
	hub     *Broadcaster
}

// New creates a Session backed by backend.
func New(backend Backend, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = risk.Default
	}

	hub := NewBroadcaster()
	s := &Session{backend: backend, hub: hub, Classifier: classifier}

	s.Start = suggest.New(backend, suggest.Options{
		Field:     string(FieldStart),
		Debounce:  cfg.Debounce,
		AfterFunc: cfg.AfterFunc,
		Logger:    logger,
		OnChange:  hub.Publish,
	})
	s.End = suggest.New(backend, suggest.Options{
		Field:     string(FieldEnd),
		Debounce:  cfg.Debounce,
		AfterFunc: cfg.AfterFunc,
		Logger:    logger,
		OnChange:  hub.Publish,
	})
	s.Orchestrator = query.New(s.Start, s.End, backend, query.Options{
		WindowHours: cfg.WindowHours,
		Logger:      logger,
		OnChange:    hub.Publish,
	})
	return s
}

// Field returns the engine for f, or false for an unknown field.
func (s *Session) Field(f Field) (*suggest.Engine, bool) {
	switch f {
	case FieldStart:
		return s.Start, true
	case FieldEnd:
		return s.End, true
	default:
		return nil, false
	}
}

// Forecast passes a forecast lookup through to the backend.
func (s *Session) Forecast(ctx context.Context, loc route.Coordinate, start time.Time) (*route.Forecast, error) {
	return s.backend.ForecastWeather(ctx, loc, start)
}

// Snapshot returns the state of both fields and both slots.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Start:    s.Start.Snapshot(),
		End:      s.End.Snapshot(),
		Snapshot: s.Orchestrator.Snapshot(),
	}
}

// Subscribe returns a channel signalled after state changes and a function to stop.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	return s.hub.Subscribe()
}

// Close stops both engines and the orchestrator.
func (s *Session) Close() {
	s.Start.Close()
	s.End.Close()
	s.Orchestrator.Close()
	s.hub.Close()
}

// Broadcaster coalesces change notifications to any number of subscribers.
// A slow subscriber sees at most one pending signal.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan struct{}]struct{})}
}

// Publish signals every subscriber without blocking.
func (b *Broadcaster) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers a subscriber.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

// Close closes every subscriber channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
