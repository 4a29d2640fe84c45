package graph

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/leadgraph/log"
)

// TraceEvent is the kind of a TraceSpan.
type TraceEvent string

const (
	TraceEventGraphStart    TraceEvent = "graph_start"
	TraceEventGraphEnd      TraceEvent = "graph_end"
	TraceEventNodeStart     TraceEvent = "node_start"
	TraceEventNodeEnd       TraceEvent = "node_end"
	TraceEventNodeError     TraceEvent = "node_error"
	TraceEventNodeFallback  TraceEvent = "node_fallback" // a best-effort node failed and its placeholder was merged
	TraceEventEdgeTraversal TraceEvent = "edge_traversal"
)

// TraceSpan is one recorded event of a run. Node spans are reported twice:
// once when the node starts and again, with the final event, when it ends.
type TraceSpan struct {
	ID       string
	ParentID string // empty for the run span
	RunID    string
	Event    TraceEvent

	NodeName string
	Step     int // 1-based node application index

	FromNode, ToNode string // edge spans only

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Update   Update // what the node returned
	Error    error
	Metadata map[string]any
}

// TraceHook receives spans. Hooks may be called concurrently while fan-out
// siblings run.
type TraceHook interface {
	OnEvent(ctx context.Context, span *TraceSpan)
}

// TraceHookFunc adapts a function to TraceHook.
type TraceHookFunc func(ctx context.Context, span *TraceSpan)

func (f TraceHookFunc) OnEvent(ctx context.Context, span *TraceSpan) { f(ctx, span) }

// Tracer collects the spans of the runs it is attached to through
// Config.Tracer and forwards them to its hooks.
type Tracer struct {
	mu    sync.Mutex
	hooks []TraceHook
	spans map[string]*TraceSpan
}

func NewTracer() *Tracer {
	return &Tracer{spans: make(map[string]*TraceSpan)}
}

func (t *Tracer) AddHook(hook TraceHook) {
	t.mu.Lock()
	t.hooks = append(t.hooks, hook)
	t.mu.Unlock()
}

// GetSpans returns the spans recorded so far, keyed by span id.
func (t *Tracer) GetSpans() map[string]*TraceSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]*TraceSpan, len(t.spans))
	for id, s := range t.spans {
		out[id] = s
	}
	return out
}

func (t *Tracer) begin(ctx context.Context, span *TraceSpan) *TraceSpan {
	span.ID = uuid.NewString()
	span.StartTime = time.Now()
	if span.Event == TraceEventEdgeTraversal {
		span.EndTime = span.StartTime
	}
	if span.Metadata == nil {
		span.Metadata = make(map[string]any)
	}
	if parent := SpanFromContext(ctx); parent != nil {
		span.ParentID = parent.ID
		if span.RunID == "" {
			span.RunID = parent.RunID
		}
	}
	t.emit(ctx, span)
	return span
}

// EndSpan closes span, turning a start event into its end (or error) event.
func (t *Tracer) EndSpan(ctx context.Context, span *TraceSpan, update Update, err error) {
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	span.Update = update
	span.Error = err

	switch {
	case span.Event == TraceEventGraphStart:
		span.Event = TraceEventGraphEnd
	case span.Event == TraceEventNodeStart && err != nil:
		span.Event = TraceEventNodeError
	case span.Event == TraceEventNodeStart:
		span.Event = TraceEventNodeEnd
	}
	t.emit(ctx, span)
}

// TraceEdgeTraversal records that control moved from one node to another.
func (t *Tracer) TraceEdgeTraversal(ctx context.Context, from, to string) {
	t.begin(ctx, &TraceSpan{Event: TraceEventEdgeTraversal, FromNode: from, ToNode: to})
}

func (t *Tracer) emit(ctx context.Context, span *TraceSpan) {
	t.mu.Lock()
	t.spans[span.ID] = span
	hooks := append([]TraceHook(nil), t.hooks...)
	t.mu.Unlock()

	for _, h := range hooks {
		h.OnEvent(ctx, span)
	}
}

// NewLoggingHook returns a hook that reports finished steps at info level
// and node starts and edges at debug level.
func NewLoggingHook(logger log.Logger) TraceHook {
	return TraceHookFunc(func(_ context.Context, span *TraceSpan) {
		switch span.Event {
		case TraceEventNodeStart:
			logger.Debug("step %d: %s started", span.Step, span.NodeName)
		case TraceEventNodeEnd:
			logger.Info("step %d: %s finished in %s", span.Step, span.NodeName, span.Duration)
		case TraceEventNodeFallback:
			logger.Warn("step %d: %s fell back: %v", span.Step, span.NodeName, span.Error)
		case TraceEventNodeError:
			logger.Error("step %d: %s failed: %v", span.Step, span.NodeName, span.Error)
		case TraceEventEdgeTraversal:
			logger.Debug("%s -> %s", span.FromNode, span.ToNode)
		case TraceEventGraphEnd:
			if span.Error != nil {
				logger.Error("run %s aborted after %s: %v", span.RunID, span.Duration, span.Error)
			} else {
				logger.Info("run %s finished in %s", span.RunID, span.Duration)
			}
		}
	})
}

type spanKey struct{}

// ContextWithSpan returns a copy of ctx carrying span as the parent of
// spans started from it.
func ContextWithSpan(ctx context.Context, span *TraceSpan) context.Context {
	return context.WithValue(ctx, spanKey{}, span)
}

// SpanFromContext returns the span stored by ContextWithSpan, or nil.
func SpanFromContext(ctx context.Context) *TraceSpan {
	span, _ := ctx.Value(spanKey{}).(*TraceSpan)
	return span
}
