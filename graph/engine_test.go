package graph_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/leadgraph/graph"
	"github.com/smallnest/leadgraph/log"
)

func newSchema() *graph.Schema {
	return graph.MustSchema(
		graph.Field{Name: "count", Reducer: graph.Replace, Default: func() any { return 0 }},
		graph.Field{Name: "log", Reducer: graph.Append, Default: func() any { return []string{} }},
		graph.Field{Name: "flag", Reducer: graph.Replace},
		graph.Field{Name: "a", Reducer: graph.Replace},
		graph.Field{Name: "b", Reducer: graph.Replace},
		graph.Field{Name: "c", Reducer: graph.Replace},
	)
}

func quiet() *graph.Config {
	return &graph.Config{Logger: &log.NoOpLogger{}}
}

func appendLog(entry string) graph.NodeFunc {
	return func(ctx context.Context, s graph.State) (graph.Update, error) {
		return graph.Update{"log": entry}, nil
	}
}

func increment(ctx context.Context, s graph.State) (graph.Update, error) {
	return graph.Update{"count": graph.Get[int](s, "count") + 1}, nil
}

func TestInvoke_Linear(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("first", "first", appendLog("first"))
	g.AddNode("second", "second", appendLog("second"))
	g.AddEdge("first", "second")
	g.AddEdge("second", graph.END)
	g.SetEntryPoint("first")

	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.InvokeWithConfig(context.Background(), graph.Update{"count": 10}, quiet())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, final["log"])
	assert.Equal(t, 10, final["count"])
}

func TestInvoke_InitialStateRejectsUnknownField(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("n", "n", increment)
	g.AddEdge("n", graph.END)
	g.SetEntryPoint("n")
	r, err := g.Compile()
	require.NoError(t, err)

	_, err = r.InvokeWithConfig(context.Background(), graph.Update{"nope": 1}, quiet())
	assert.ErrorIs(t, err, graph.ErrUnknownField)
}

func TestInvoke_StepBound(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("loop", "loops forever", increment)
	g.AddEdge("loop", "loop")
	g.SetEntryPoint("loop")
	r, err := g.Compile()
	require.NoError(t, err)

	cfg := quiet()
	cfg.StepBound = 5
	final, err := r.InvokeWithConfig(context.Background(), nil, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrStepBoundExceeded)

	var sbe *graph.StepBoundError
	require.True(t, errors.As(err, &sbe))
	assert.Equal(t, 5, sbe.Steps)
	assert.Equal(t, []string{"loop"}, sbe.Pending)

	// exactly the bound was applied and is visible in the partial state
	assert.Equal(t, 5, final["count"])
}

func TestInvoke_StepBoundExactlyReached(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("a", "", increment)
	g.AddNode("b", "", increment)
	g.AddNode("c", "", increment)
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", graph.END)
	g.SetEntryPoint("a")
	r, err := g.Compile()
	require.NoError(t, err)

	cfg := quiet()
	cfg.StepBound = 3
	final, err := r.InvokeWithConfig(context.Background(), nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, final["count"])
}

func TestInvoke_DefaultStepBound(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("loop", "", increment)
	g.AddEdge("loop", "loop")
	g.SetEntryPoint("loop")
	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.InvokeWithConfig(context.Background(), nil, quiet())
	assert.ErrorIs(t, err, graph.ErrStepBoundExceeded)
	assert.Equal(t, graph.DefaultStepBound, final["count"])
}

func fanOutGraph(t *testing.T, sibling func(name string) graph.NodeFunc, join graph.NodeFunc) *graph.Runnable {
	t.Helper()
	g := graph.NewGraph(newSchema())
	g.AddNode("start", "", func(ctx context.Context, s graph.State) (graph.Update, error) {
		return graph.Update{"count": 1}, nil
	})
	for _, name := range []string{"a", "b", "c"} {
		g.AddNode(name, "", sibling(name))
	}
	g.AddNode("join", "", join)
	g.AddFanOut("start", []string{"a", "b", "c"}, "join")
	g.AddEdge("join", graph.END)
	g.SetEntryPoint("start")
	r, err := g.Compile()
	require.NoError(t, err)
	return r
}

func TestInvoke_FanOutBarrier(t *testing.T) {
	var running atomic.Int32
	var peak atomic.Int32

	sibling := func(name string) graph.NodeFunc {
		return func(ctx context.Context, s graph.State) (graph.Update, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			// every sibling sees the snapshot taken before the fan-out
			return graph.Update{name: graph.Get[int](s, "count"), "log": name}, nil
		}
	}
	join := func(ctx context.Context, s graph.State) (graph.Update, error) {
		logs := graph.Get[[]string](s, "log")
		return graph.Update{"flag": len(logs)}, nil
	}

	final, err := fanOutGraph(t, sibling, join).InvokeWithConfig(context.Background(), nil, quiet())
	require.NoError(t, err)

	assert.Equal(t, 3, final["flag"], "join must see all three sibling updates")
	assert.ElementsMatch(t, []string{"a", "b", "c"}, final["log"])
	assert.Equal(t, 1, final["a"])
	assert.Equal(t, 1, final["b"])
	assert.Equal(t, 1, final["c"])
	assert.Greater(t, peak.Load(), int32(1), "siblings should overlap")
}

func TestInvoke_FanOutMergesInCompletionOrder(t *testing.T) {
	delays := map[string]time.Duration{"a": 150 * time.Millisecond, "b": 0, "c": 75 * time.Millisecond}
	sibling := func(name string) graph.NodeFunc {
		return func(ctx context.Context, s graph.State) (graph.Update, error) {
			time.Sleep(delays[name])
			return graph.Update{"log": name}, nil
		}
	}
	join := func(ctx context.Context, s graph.State) (graph.Update, error) { return nil, nil }

	final, err := fanOutGraph(t, sibling, join).InvokeWithConfig(context.Background(), nil, quiet())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, final["log"])
}

func TestInvoke_FanOutDisjointFieldsCommute(t *testing.T) {
	sibling := func(name string) graph.NodeFunc {
		return func(ctx context.Context, s graph.State) (graph.Update, error) {
			return graph.Update{name: "value-" + name}, nil
		}
	}
	join := func(ctx context.Context, s graph.State) (graph.Update, error) { return nil, nil }
	r := fanOutGraph(t, sibling, join)

	concurrent, err := r.InvokeWithConfig(context.Background(), nil, quiet())
	require.NoError(t, err)

	cfg := quiet()
	cfg.Sequential = true
	sequential, err := r.InvokeWithConfig(context.Background(), nil, cfg)
	require.NoError(t, err)

	for _, k := range []string{"a", "b", "c"} {
		assert.Equal(t, sequential[k], concurrent[k])
	}
}

func TestInvoke_FanOutSiblingFailureAborts(t *testing.T) {
	sibling := func(name string) graph.NodeFunc {
		return func(ctx context.Context, s graph.State) (graph.Update, error) {
			if name == "b" {
				return nil, errors.New("boom")
			}
			return graph.Update{name: true}, nil
		}
	}
	joined := false
	join := func(ctx context.Context, s graph.State) (graph.Update, error) {
		joined = true
		return nil, nil
	}

	final, err := fanOutGraph(t, sibling, join).InvokeWithConfig(context.Background(), nil, quiet())
	require.Error(t, err)

	var ne *graph.NodeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "b", ne.Node)
	assert.False(t, joined)
	assert.Equal(t, 1, final["count"], "state merged before the fan-out survives")
}

func TestInvoke_ConditionalRouting(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("check", "", func(ctx context.Context, s graph.State) (graph.Update, error) {
		return graph.Update{"flag": true}, nil
	})
	g.AddNode("yes", "", appendLog("yes"))
	g.AddNode("no", "", appendLog("no"))
	g.AddConditionalEdges("check", graph.Router{
		Name:   "flagged",
		Labels: []string{"yes", "no"},
		Route: func(ctx context.Context, s graph.State) string {
			// sees the update made by check itself
			if graph.Get[bool](s, "flag") {
				return "yes"
			}
			return "no"
		},
	}, map[string]string{"yes": "yes", "no": "no"})
	g.AddEdge("yes", graph.END)
	g.AddEdge("no", graph.END)
	g.SetEntryPoint("check")

	r, err := g.Compile()
	require.NoError(t, err)
	final, err := r.InvokeWithConfig(context.Background(), nil, quiet())
	require.NoError(t, err)
	assert.Equal(t, []string{"yes"}, final["log"])
}

func TestInvoke_UnknownRoute(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("n", "", increment)
	g.AddConditionalEdges("n", graph.Router{
		Name:   "broken",
		Labels: []string{"ok"},
		Route:  func(ctx context.Context, s graph.State) string { return "surprise" },
	}, map[string]string{"ok": graph.END})
	g.SetEntryPoint("n")

	r, err := g.Compile()
	require.NoError(t, err)
	final, err := r.InvokeWithConfig(context.Background(), nil, quiet())
	assert.ErrorIs(t, err, graph.ErrUnknownRoute)

	var ure *graph.UnknownRouteError
	require.True(t, errors.As(err, &ure))
	assert.Equal(t, "broken", ure.Router)
	assert.Equal(t, "n", ure.Node)
	assert.Equal(t, "surprise", ure.Label)
	assert.Equal(t, 1, final["count"])
}

func TestInvoke_RouterPanic(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("n", "", increment)
	g.AddConditionalEdges("n", graph.Router{
		Name:   "panicky",
		Labels: []string{"ok"},
		Route:  func(ctx context.Context, s graph.State) string { panic("no") },
	}, map[string]string{"ok": graph.END})
	g.SetEntryPoint("n")

	r, err := g.Compile()
	require.NoError(t, err)
	_, err = r.InvokeWithConfig(context.Background(), nil, quiet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicky")
}

func TestInvoke_NodeErrorKeepsPartialState(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("ok", "", increment)
	g.AddNode("bad", "", func(ctx context.Context, s graph.State) (graph.Update, error) {
		return nil, fmt.Errorf("source unreachable")
	})
	g.AddEdge("ok", "bad")
	g.AddEdge("bad", graph.END)
	g.SetEntryPoint("ok")

	r, err := g.Compile()
	require.NoError(t, err)
	final, err := r.InvokeWithConfig(context.Background(), nil, quiet())

	var ne *graph.NodeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "bad", ne.Node)
	assert.Equal(t, 2, ne.Step)
	assert.Contains(t, err.Error(), "source unreachable")
	assert.Equal(t, 1, final["count"])
}

func TestInvoke_NodePanicBecomesError(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("p", "", func(ctx context.Context, s graph.State) (graph.Update, error) {
		panic("kaboom")
	})
	g.AddEdge("p", graph.END)
	g.SetEntryPoint("p")

	r, err := g.Compile()
	require.NoError(t, err)
	_, err = r.InvokeWithConfig(context.Background(), nil, quiet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestInvoke_UnknownFieldInUpdate(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("n", "", func(ctx context.Context, s graph.State) (graph.Update, error) {
		return graph.Update{"undeclared": 1}, nil
	})
	g.AddEdge("n", graph.END)
	g.SetEntryPoint("n")

	r, err := g.Compile()
	require.NoError(t, err)
	_, err = r.InvokeWithConfig(context.Background(), nil, quiet())
	assert.ErrorIs(t, err, graph.ErrUnknownField)

	var ne *graph.NodeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "n", ne.Node)
}

func TestInvoke_BestEffortFallback(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddBestEffortNode("flaky", "", func(ctx context.Context, s graph.State) graph.Result {
		return graph.Failure(errors.New("scrape failed"), graph.Update{"log": "placeholder"})
	})
	g.AddBestEffortNode("panics", "", func(ctx context.Context, s graph.State) graph.Result {
		panic("unexpected")
	})
	g.AddBestEffortNode("fine", "", func(ctx context.Context, s graph.State) graph.Result {
		return graph.Success(graph.Update{"log": "fine"})
	})
	g.AddEdge("flaky", "panics")
	g.AddEdge("panics", "fine")
	g.AddEdge("fine", graph.END)
	g.SetEntryPoint("flaky")

	r, err := g.Compile()
	require.NoError(t, err)

	tracer := graph.NewTracer()
	cfg := quiet()
	cfg.Tracer = tracer
	final, err := r.InvokeWithConfig(context.Background(), nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"placeholder", "fine"}, final["log"])

	fallbacks := 0
	for _, span := range tracer.GetSpans() {
		if span.Event == graph.TraceEventNodeFallback {
			fallbacks++
		}
	}
	assert.Equal(t, 2, fallbacks)
}

func TestInvoke_OverwriteResetsOnLoopReentry(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("enter", "", func(ctx context.Context, s graph.State) (graph.Update, error) {
		return graph.Update{"log": graph.Overwrite{Value: []string{}}}, nil
	})
	g.AddNode("work", "", func(ctx context.Context, s graph.State) (graph.Update, error) {
		return graph.Update{"log": []string{"x", "y"}, "count": graph.Get[int](s, "count") + 1}, nil
	})
	g.AddNode("check", "", func(ctx context.Context, s graph.State) (graph.Update, error) {
		return graph.Update{"a": len(graph.Get[[]string](s, "log"))}, nil
	})
	g.AddEdge("enter", "work")
	g.AddEdge("work", "check")
	g.AddConditionalEdges("check", graph.Router{
		Name:   "more",
		Labels: []string{"again", "done"},
		Route: func(ctx context.Context, s graph.State) string {
			if graph.Get[int](s, "count") < 3 {
				return "again"
			}
			return "done"
		},
	}, map[string]string{"again": "enter", "done": graph.END})
	g.SetEntryPoint("enter")

	r, err := g.Compile()
	require.NoError(t, err)
	final, err := r.InvokeWithConfig(context.Background(), nil, quiet())
	require.NoError(t, err)
	assert.Equal(t, 3, final["count"])
	assert.Equal(t, 2, final["a"], "each iteration only sees its own entries")
}

func TestInvoke_ContextCancelled(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("n", "", increment)
	g.AddEdge("n", "n")
	g.SetEntryPoint("n")
	r, err := g.Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.InvokeWithConfig(ctx, nil, quiet())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvoke_Tracing(t *testing.T) {
	g := graph.NewGraph(newSchema())
	g.AddNode("node1", "First node", increment)
	g.AddNode("node2", "Second node", increment)
	g.AddEdge("node1", "node2")
	g.AddEdge("node2", graph.END)
	g.SetEntryPoint("node1")
	r, err := g.Compile()
	require.NoError(t, err)

	tracer := graph.NewTracer()
	var events []graph.TraceEvent
	tracer.AddHook(graph.TraceHookFunc(func(ctx context.Context, span *graph.TraceSpan) {
		events = append(events, span.Event)
	}))

	cfg := quiet()
	cfg.Tracer = tracer
	cfg.RunID = "run-1"
	_, err = r.InvokeWithConfig(context.Background(), nil, cfg)
	require.NoError(t, err)

	var hasGraphEnd, hasNode2End bool
	for _, span := range tracer.GetSpans() {
		assert.Equal(t, "run-1", span.RunID)
		if span.Event == graph.TraceEventGraphEnd {
			hasGraphEnd = true
		}
		if span.Event == graph.TraceEventNodeEnd && span.NodeName == "node2" {
			hasNode2End = true
			assert.Equal(t, 2, span.Step)
			assert.NotEmpty(t, span.ParentID)
		}
	}
	assert.True(t, hasGraphEnd)
	assert.True(t, hasNode2End)
	assert.Contains(t, events, graph.TraceEventEdgeTraversal)
	assert.Equal(t, graph.TraceEventGraphStart, events[0])
}
