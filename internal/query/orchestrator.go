// Package query drives the plan-route and recommend-departure operations and
// owns their slot state.
package query

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/route-risk/internal/metrics"
	"github.com/i474232898/route-risk/internal/route"
)

// Planner is the remote side of both operations.
type Planner interface {
	PlanRoute(ctx context.Context, req route.PlanRequest) (*route.PlannedRoute, error)
	RecommendDeparture(ctx context.Context, req route.RecommendRequest) (*route.DepartureRecommendation, error)
}

// EndpointSource exposes a location field's current query.
type EndpointSource interface {
	Query() route.LocationQuery
}

// Options configures an Orchestrator.
type Options struct {
	// WindowHours is the default departure search window.
	WindowHours int
	Logger      *slog.Logger
	// OnChange is called, without locks held, after every slot transition.
	OnChange func()
	Now      func() time.Time
}

// PlanOptions are the caller's choices for one plan invocation.
type PlanOptions struct {
	DepartureTime *time.Time
	// ClearRecommendation drops the recommendation slot's data when the plan starts.
	ClearRecommendation bool
}

// Snapshot is the read-only state of both slots.
type Snapshot struct {
	Plan           SlotView[route.PlannedRoute]            `json:"plan"`
	Recommendation SlotView[route.DepartureRecommendation] `json:"recommendation"`
}

// Orchestrator runs plan and recommend as independent slots. Neither operation
// cancels the other; re-invoking one supersedes its own in-flight call.
type Orchestrator struct {
	start   EndpointSource
	end     EndpointSource
	planner Planner
	window  int
	log     *slog.Logger
	notify  func()
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	plan       slot[route.PlannedRoute]
	rec        slot[route.DepartureRecommendation]
	lastPlan   PlanOptions
	lastWindow int
}

// New creates an Orchestrator reading endpoints from start and end.
func New(start, end EndpointSource, planner Planner, opts Options) *Orchestrator {
	window := opts.WindowHours
	if window <= 0 {
		window = route.DefaultWindowHours
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notify := opts.OnChange
	if notify == nil {
		notify = func() {}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		start:   start,
		end:     end,
		planner: planner,
		window:  window,
		log:     logger,
		notify:  notify,
		now:     now,
		ctx:     ctx,
		cancel:  cancel,
		plan:    newSlot[route.PlannedRoute]("plan"),
		rec:     newSlot[route.DepartureRecommendation]("recommendation"),
	}
}

// endpoints returns both coordinates or a *ValidationError naming the unresolved ones.
func (o *Orchestrator) endpoints() (route.Coordinate, route.Coordinate, error) {
	sq, eq := o.start.Query(), o.end.Query()

	var missing []string
	if !sq.Resolved() {
		missing = append(missing, EndpointStart)
	}
	if !eq.Resolved() {
		missing = append(missing, EndpointDestination)
	}
	if len(missing) > 0 {
		return route.Coordinate{}, route.Coordinate{}, &ValidationError{Endpoints: missing}
	}
	return *sq.Selected, *eq.Selected, nil
}

// PlanRoute starts a plan in the background. It returns a *ValidationError,
// without calling the service, when an endpoint is unresolved.
func (o *Orchestrator) PlanRoute(opts PlanOptions) error {
	start, end, err := o.endpoints()

	o.mu.Lock()
	if err != nil {
		o.plan.reject(err.Error(), o.now())
		o.mu.Unlock()
		o.notify()
		return err
	}
	gen := o.plan.begin()
	if opts.ClearRecommendation {
		o.rec.reset()
	}
	o.lastPlan = opts
	o.mu.Unlock()
	o.notify()

	req := route.PlanRequest{Start: start, End: end, DepartureTime: opts.DepartureTime}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		planned, err := o.planner.PlanRoute(o.ctx, req)
		o.finishPlan(gen, planned, err)
	}()
	return nil
}

func (o *Orchestrator) finishPlan(gen uint64, planned *route.PlannedRoute, err error) {
	var msg string
	if err != nil {
		msg = "Failed to plan route: " + err.Error()
	}

	o.mu.Lock()
	applied := o.plan.resolve(gen, planned, msg, o.now())
	o.mu.Unlock()

	if !applied {
		metrics.StaleDiscarded.WithLabelValues(o.plan.name).Inc()
		o.log.Debug("discarding superseded plan result", "generation", gen)
		return
	}
	if err != nil {
		o.log.Warn("route planning failed", "error", err)
	} else {
		o.log.Info("route planned", "segments", len(planned.Segments), "distance_m", planned.TotalDistanceMeters)
	}
	o.notify()
}

// RecommendDeparture starts a recommendation in the background using the
// configured window when windowHours is not positive.
func (o *Orchestrator) RecommendDeparture(windowHours int) error {
	start, end, err := o.endpoints()

	o.mu.Lock()
	if err != nil {
		o.rec.reject(err.Error(), o.now())
		o.mu.Unlock()
		o.notify()
		return err
	}
	if windowHours <= 0 {
		windowHours = o.window
	}
	gen := o.rec.begin()
	o.lastWindow = windowHours
	o.mu.Unlock()
	o.notify()

	req := route.RecommendRequest{Start: start, End: end, WindowHours: windowHours}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		rec, err := o.planner.RecommendDeparture(o.ctx, req)
		o.finishRecommendation(gen, rec, err)
	}()
	return nil
}

func (o *Orchestrator) finishRecommendation(gen uint64, rec *route.DepartureRecommendation, err error) {
	var msg string
	if err != nil {
		msg = "Failed to get recommendations: " + err.Error()
	}

	o.mu.Lock()
	applied := o.rec.resolve(gen, rec, msg, o.now())
	o.mu.Unlock()

	if !applied {
		metrics.StaleDiscarded.WithLabelValues(o.rec.name).Inc()
		o.log.Debug("discarding superseded recommendation", "generation", gen)
		return
	}
	if err != nil {
		o.log.Warn("departure recommendation failed", "error", err)
	} else {
		o.log.Info("departure recommended", "best", rec.Best.DepartureTime, "average_risk", rec.Best.AverageRisk)
	}
	o.notify()
}

// Refresh re-runs every fulfilled slot with its last options. Pending and
// failed slots are left alone.
func (o *Orchestrator) Refresh() error {
	o.mu.Lock()
	replan := o.plan.status == StatusFulfilled
	rerecommend := o.rec.status == StatusFulfilled
	planOpts := o.lastPlan
	planOpts.ClearRecommendation = false
	window := o.lastWindow
	o.mu.Unlock()

	var errs []error
	if replan {
		errs = append(errs, o.PlanRoute(planOpts))
	}
	if rerecommend {
		errs = append(errs, o.RecommendDeparture(window))
	}
	return errors.Join(errs...)
}

// Snapshot returns the current state of both slots.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{Plan: o.plan.view(), Recommendation: o.rec.view()}
}

// Wait blocks until every in-flight call has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels in-flight calls, discards their results and waits for them to return.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.plan.gen++
	o.rec.gen++
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
}
