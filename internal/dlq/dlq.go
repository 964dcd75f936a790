// Package dlq implements the in-memory dead-letter queue shared by every
// adapter that can fail unrecoverably partway through the pipeline.
package dlq

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the default bound on the number of entries retained; the
// oldest entry is evicted once the store is full.
const DefaultCapacity = 1000

// DefaultMaxAttempts is the default number of recovery attempts allowed
// before an entry is marked unrecoverable.
const DefaultMaxAttempts = 5

// transientPatterns classifies an error as recoverable when its message
// substring-matches one of these.
var transientPatterns = []string{
	"connection reset", "ECONNRESET",
	"timeout", "ETIMEDOUT",
	"dns", "ENOTFOUND", "EAI_AGAIN",
	"rate limit", "RATE_LIMIT", "429",
	"500", "502", "503", "504",
	"circuit breaker",
}

func isTransient(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	for _, p := range transientPatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Entry is a single dead-lettered job.
type Entry struct {
	ID          string
	Stage       string
	DocumentID  string
	Error       string
	Recoverable bool
	Attempts    int
	MaxAttempts int
	Recovered   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Stats summarizes the current contents of the queue.
type Stats struct {
	Total       int
	Recoverable int
	Unrecovered int
	Recovered   int
}

// Queue is a thread-safe, bounded, insertion-order-preserving dead-letter
// store.
type Queue struct {
	mu          sync.Mutex
	capacity    int
	maxAttempts int
	order       []string
	entries     map[string]*Entry
	now         func() time.Time
}

// Option configures a Queue at construction.
type Option func(*Queue)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(q *Queue) { q.capacity = n }
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) { q.maxAttempts = n }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New constructs an empty Queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		capacity:    DefaultCapacity,
		maxAttempts: DefaultMaxAttempts,
		entries:     make(map[string]*Entry),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Add records a new dead-lettered job, evicting the oldest entry if the
// queue is at capacity, and returns the new entry's ID.
func (q *Queue) Add(stage, documentID, errMsg string) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) >= q.capacity {
		oldest := q.order[0]
		q.order = q.order[1:]
		delete(q.entries, oldest)
	}

	id := "dlq-" + uuid.NewString()
	now := q.now()
	entry := &Entry{
		ID:          id,
		Stage:       stage,
		DocumentID:  documentID,
		Error:       errMsg,
		Recoverable: isTransient(errMsg),
		MaxAttempts: q.maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q.entries[id] = entry
	q.order = append(q.order, id)
	return id
}

func (q *Queue) copyOf(e *Entry) *Entry {
	cp := *e
	return &cp
}

// Get returns the entry with the given ID, or (nil, false) if absent.
func (q *Queue) Get(id string) (*Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return nil, false
	}
	return q.copyOf(e), true
}

// ListByStage returns entries for a given stage, in insertion order.
func (q *Queue) ListByStage(stage string) []*Entry {
	return q.filter(func(e *Entry) bool { return e.Stage == stage })
}

// ListByDocument returns entries for a given document, in insertion order.
func (q *Queue) ListByDocument(documentID string) []*Entry {
	return q.filter(func(e *Entry) bool { return e.DocumentID == documentID })
}

// ListRecoverable returns entries still marked recoverable and not yet
// recovered, in insertion order.
func (q *Queue) ListRecoverable() []*Entry {
	return q.filter(func(e *Entry) bool { return e.Recoverable && !e.Recovered })
}

func (q *Queue) filter(pred func(*Entry) bool) []*Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Entry
	for _, id := range q.order {
		e := q.entries[id]
		if pred(e) {
			out = append(out, q.copyOf(e))
		}
	}
	return out
}

// IncrementAttempts records one more recovery attempt for id, marking the
// entry unrecoverable once attempts reach its MaxAttempts.
func (q *Queue) IncrementAttempts(id string) (*Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return nil, false
	}
	e.Attempts++
	e.UpdatedAt = q.now()
	if e.Attempts >= e.MaxAttempts {
		e.Recoverable = false
	}
	return q.copyOf(e), true
}

// MarkRecovered marks id as recovered, removing it from ListRecoverable
// results.
func (q *Queue) MarkRecovered(id string) (*Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return nil, false
	}
	e.Recovered = true
	e.UpdatedAt = q.now()
	return q.copyOf(e), true
}

// Stats summarizes the queue's current contents.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	var s Stats
	for _, id := range q.order {
		e := q.entries[id]
		s.Total++
		switch {
		case e.Recovered:
			s.Recovered++
		case e.Recoverable:
			s.Recoverable++
		default:
			s.Unrecovered++
		}
	}
	return s
}

// PurgeOlderThan removes entries created more than the given number of hours
// ago, preserving relative order of what remains.
func (q *Queue) PurgeOlderThan(hours float64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := q.now().Add(-time.Duration(hours * float64(time.Hour)))
	var kept []string
	purged := 0
	for _, id := range q.order {
		e := q.entries[id]
		if e.CreatedAt.Before(cutoff) {
			delete(q.entries, id)
			purged++
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
	return purged
}
