package query

import "time"

// Status is the state of an operation slot.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusFailed    Status = "failed"
)

// SlotView is a read-only snapshot of a slot. Data is the last successful result
// and survives later failures.
type SlotView[T any] struct {
	Status    Status    `json:"status"`
	Loading   bool      `json:"loading"`
	Data      *T        `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// slot holds one operation's state machine: Idle -> Pending -> Fulfilled|Failed,
// and back to Pending on the next invocation. Callers hold the orchestrator lock.
type slot[T any] struct {
	name      string
	gen       uint64
	status    Status
	data      *T
	err       string
	updatedAt time.Time
}

func newSlot[T any](name string) slot[T] {
	return slot[T]{name: name, status: StatusIdle}
}

// begin supersedes any in-flight call and returns the new generation.
func (s *slot[T]) begin() uint64 {
	s.gen++
	s.status = StatusPending
	s.err = ""
	return s.gen
}

// resolve applies a result issued under gen. It reports false, changing nothing,
// when a newer call has superseded it.
func (s *slot[T]) resolve(gen uint64, data *T, msg string, now time.Time) bool {
	if gen != s.gen {
		return false
	}
	if msg != "" {
		s.status = StatusFailed
		s.err = msg
	} else {
		s.status = StatusFulfilled
		s.data = data
		s.err = ""
	}
	s.updatedAt = now
	return true
}

// reject records a failure that happened before any call was issued.
func (s *slot[T]) reject(msg string, now time.Time) {
	s.gen++
	s.status = StatusFailed
	s.err = msg
	s.updatedAt = now
}

// reset forgets the slot's data and drops any in-flight result.
func (s *slot[T]) reset() {
	s.gen++
	s.status = StatusIdle
	s.data = nil
	s.err = ""
	s.updatedAt = time.Time{}
}

func (s *slot[T]) view() SlotView[T] {
	return SlotView[T]{
		Status:    s.status,
		Loading:   s.status == StatusPending,
		Data:      s.data,
		Error:     s.err,
		UpdatedAt: s.updatedAt,
	}
}
