// Package suggest turns the edits of one location field into a debounced,
// generation-checked stream of geocoder suggestions.
package suggest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/i474232898/route-risk/internal/metrics"
	"github.com/i474232898/route-risk/internal/route"
)

// DefaultDebounce is the quiet interval before a search fires.
const DefaultDebounce = 300 * time.Millisecond

// Searcher looks up locations by name.
type Searcher interface {
	SearchLocations(ctx context.Context, q string) ([]route.Suggestion, error)
}

// AfterFunc schedules f after d and returns a function that cancels it.
// The stop function reports whether f was prevented from running.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

// TimeAfterFunc schedules with time.AfterFunc.
func TimeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Options configures an Engine.
type Options struct {
	// Field names the input in logs and metrics, e.g. "start".
	Field     string
	Debounce  time.Duration
	AfterFunc AfterFunc
	Logger    *slog.Logger
	// OnChange is called, without locks held, after every visible state change.
	OnChange func()
}

// FieldView is a read-only snapshot of a field for rendering.
type FieldView struct {
	Text        string             `json:"text"`
	Selected    *route.Coordinate  `json:"selected_coordinate,omitempty"`
	Suggestions []route.Suggestion `json:"suggestions"`
	Open        bool               `json:"open"`
	Loading     bool               `json:"loading"`
	Error       string             `json:"error,omitempty"`
	ActiveIndex int                `json:"active_index"`
}

// Engine owns one field's query and suggestion list.
type Engine struct {
	field     string
	searcher  Searcher
	debounce  time.Duration
	afterFunc AfterFunc
	log       *slog.Logger
	onChange  func()

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	query       route.LocationQuery
	suggestions []route.Suggestion
	open        bool
	loading     bool
	err         string
	active      int
	// gen is bumped by every edit and selection; a search result is applied
	// only while the generation it was issued under is still current.
	gen       uint64
	stopTimer func() bool
}

// New creates an Engine backed by searcher.
func New(searcher Searcher, opts Options) *Engine {
	debounce := opts.Debounce
	if debounce < 0 {
		debounce = 0
	} else if debounce == 0 {
		debounce = DefaultDebounce
	}
	after := opts.AfterFunc
	if after == nil {
		after = TimeAfterFunc
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		field:     opts.Field,
		searcher:  searcher,
		debounce:  debounce,
		afterFunc: after,
		log:       logger.With("field", opts.Field),
		onChange:  opts.OnChange,
		ctx:       ctx,
		cancel:    cancel,
		active:    -1,
	}
}

// OnTextChanged records an edit. Short text clears the list at once; anything
// else restarts the debounce timer so only the last edit in the window searches.
func (e *Engine) OnTextChanged(text string) {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.stopPendingLocked()

	e.query = route.LocationQuery{Text: text}
	e.err = ""
	e.loading = false

	if utf8.RuneCountInString(strings.TrimSpace(text)) < route.MinQueryLength {
		e.setSuggestionsLocked(nil)
		e.open = false
		e.mu.Unlock()
		e.notify()
		return
	}

	e.stopTimer = e.afterFunc(e.debounce, func() { e.fire(gen, text) })
	e.mu.Unlock()
	e.notify()
}

// Retry searches the current text again without waiting for the debounce window,
// e.g. after a failure. The search runs in the background.
func (e *Engine) Retry() {
	e.mu.Lock()
	text := e.query.Text
	if e.query.Resolved() || utf8.RuneCountInString(strings.TrimSpace(text)) < route.MinQueryLength {
		e.mu.Unlock()
		return
	}
	e.gen++
	gen := e.gen
	e.stopPendingLocked()
	e.mu.Unlock()

	go e.fire(gen, text)
}

func (e *Engine) fire(gen uint64, text string) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.stopTimer = nil
	e.loading = true
	e.mu.Unlock()
	e.notify()

	results, err := e.searcher.SearchLocations(e.ctx, strings.TrimSpace(text))
	e.apply(gen, results, err)
}

func (e *Engine) apply(gen uint64, results []route.Suggestion, err error) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		metrics.StaleDiscarded.WithLabelValues("suggest_" + e.field).Inc()
		e.log.Debug("discarding stale suggestions", "generation", gen)
		return
	}

	e.loading = false
	if err != nil {
		e.setSuggestionsLocked(nil)
		e.err = err.Error()
		e.log.Warn("location search failed", "error", err)
	} else {
		e.setSuggestionsLocked(results)
		e.open = true
		e.err = ""
	}
	e.mu.Unlock()
	e.notify()
}

// OnSuggestionSelected sets the field to s. Selection ends the edit cycle:
// the list closes and no search is triggered.
func (e *Engine) OnSuggestionSelected(s route.Suggestion) {
	e.mu.Lock()
	e.selectLocked(s)
	e.mu.Unlock()
	e.notify()
}

// SelectIndex selects the i-th current suggestion. It reports false when i is out of range.
func (e *Engine) SelectIndex(i int) bool {
	e.mu.Lock()
	if i < 0 || i >= len(e.suggestions) {
		e.mu.Unlock()
		return false
	}
	e.selectLocked(e.suggestions[i])
	e.mu.Unlock()
	e.notify()
	return true
}

func (e *Engine) selectLocked(s route.Suggestion) {
	e.gen++
	e.stopPendingLocked()

	coord := s.Coordinate
	e.query = route.LocationQuery{Text: s.DisplayName, Selected: &coord}
	e.setSuggestionsLocked(nil)
	e.open = false
	e.loading = false
	e.err = ""
}

// Dismiss closes the suggestion list without touching the text.
func (e *Engine) Dismiss() {
	e.mu.Lock()
	changed := e.open
	e.open = false
	e.active = -1
	e.mu.Unlock()
	if changed {
		e.notify()
	}
}

// Focus reopens the list when the field has enough text and suggestions to show.
func (e *Engine) Focus() {
	e.mu.Lock()
	reopen := !e.open && len(e.suggestions) > 0 &&
		utf8.RuneCountInString(strings.TrimSpace(e.query.Text)) >= route.MinQueryLength
	if reopen {
		e.open = true
		e.active = -1
	}
	e.mu.Unlock()
	if reopen {
		e.notify()
	}
}

// HandleKey applies a keyboard key to the open list. It reports whether the key was consumed.
func (e *Engine) HandleKey(key Key) bool {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return false
	}

	switch key {
	case KeyDown, KeyUp:
		e.active = Navigate(e.active, key, len(e.suggestions))
	case KeyEnter:
		if e.active < 0 || e.active >= len(e.suggestions) {
			e.mu.Unlock()
			return true
		}
		e.selectLocked(e.suggestions[e.active])
	case KeyEscape:
		e.open = false
		e.active = -1
	default:
		e.mu.Unlock()
		return false
	}
	e.mu.Unlock()
	e.notify()
	return true
}

// Query returns the field's text and selected coordinate.
func (e *Engine) Query() route.LocationQuery {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.query
	if q.Selected != nil {
		c := *q.Selected
		q.Selected = &c
	}
	return q
}

// Snapshot returns the field state for rendering.
func (e *Engine) Snapshot() FieldView {
	e.mu.Lock()
	defer e.mu.Unlock()

	q := e.query
	var selected *route.Coordinate
	if q.Selected != nil {
		c := *q.Selected
		selected = &c
	}
	suggestions := make([]route.Suggestion, len(e.suggestions))
	copy(suggestions, e.suggestions)

	return FieldView{
		Text:        q.Text,
		Selected:    selected,
		Suggestions: suggestions,
		Open:        e.open,
		Loading:     e.loading,
		Error:       e.err,
		ActiveIndex: e.active,
	}
}

// Close cancels any pending search. In-flight results are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	e.gen++
	e.stopPendingLocked()
	e.mu.Unlock()
	e.cancel()
}

func (e *Engine) setSuggestionsLocked(s []route.Suggestion) {
	e.suggestions = s
	e.active = -1
}

func (e *Engine) stopPendingLocked() {
	if e.stopTimer != nil {
		e.stopTimer()
		e.stopTimer = nil
	}
}

func (e *Engine) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}
