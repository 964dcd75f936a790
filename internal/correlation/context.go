// Package correlation attaches a per-operation id and metadata to every log
// and artifact, inherited by async child work without explicit parameter
// threading. It is carried on the standard context.Context so it
// composes with cancellation, deadlines, and OpenTelemetry spans the way the
// rest of the pipeline already does.
package correlation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Context is the value stored in a context.Context under ctxKey{}.
type Context struct {
	CorrelationID string
	RequestID     string
	UserID        string
	StartTime     time.Time

	mu       sync.RWMutex
	metadata map[string]any
}

// Create builds a new root Context. If correlationID is empty, a fresh
// "corr-<uuid>" is minted; requestID always gets a fresh "req-<uuid>".
func Create(correlationID string) *Context {
	if correlationID == "" {
		correlationID = newID("corr")
	}
	return &Context{
		CorrelationID: correlationID,
		RequestID:     newID("req"),
		StartTime:     time.Now(),
		metadata:      make(map[string]any),
	}
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// child preserves CorrelationID and UserID but gets a fresh RequestID and
// StartTime.
func (c *Context) child() *Context {
	return &Context{
		CorrelationID: c.CorrelationID,
		RequestID:     newID("req"),
		UserID:        c.UserID,
		StartTime:     time.Now(),
		metadata:      make(map[string]any),
	}
}

// WithUserID returns a copy of c with UserID set, for use before Run.
func (c *Context) WithUserID(userID string) *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := &Context{
		CorrelationID: c.CorrelationID,
		RequestID:     c.RequestID,
		UserID:        userID,
		StartTime:     c.StartTime,
		metadata:      cloneMetadata(c.metadata),
	}
	return cp
}

func cloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AddMetadata attaches a key/value pair visible to everything reading this
// Context. Children created by RunChild start with empty metadata and do
// not see it.
func (c *Context) AddMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

// Metadata returns a snapshot copy of the attached metadata.
func (c *Context) Metadata() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneMetadata(c.metadata)
}

// Elapsed returns time since the Context's StartTime. A child context
// created via RunChild has its own StartTime, so its Elapsed counts from
// the child's creation, not the parent's.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.StartTime)
}

// Run executes fn within a context.Context carrying c, returning whatever fn
// returns. Use RunChild to spawn async child work that must inherit
// CorrelationID/UserID but get its own RequestID/StartTime.
func Run(ctx context.Context, c *Context, fn func(context.Context) error) error {
	return fn(context.WithValue(ctx, ctxKey{}, c))
}

// RunChild spawns fn with a child Context derived from whatever Context is
// attached to ctx (if any); if none is attached, a fresh root is created.
func RunChild(ctx context.Context, fn func(context.Context) error) error {
	parent := Current(ctx)
	var child *Context
	if parent != nil {
		child = parent.child()
	} else {
		child = Create("")
	}
	return fn(context.WithValue(ctx, ctxKey{}, child))
}

// Current returns the Context attached to ctx, or nil if none was attached.
func Current(ctx context.Context) *Context {
	v, _ := ctx.Value(ctxKey{}).(*Context)
	return v
}
