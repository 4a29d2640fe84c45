package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smallnest/leadgraph/log"
)

// DefaultStepBound is the step bound used when Config.StepBound is not positive.
const DefaultStepBound = 1000

// Config holds per-run settings.
type Config struct {
	// StepBound is the maximum number of node applications in one run.
	StepBound int

	// Logger receives engine diagnostics. Defaults to log.GetDefaultLogger().
	Logger log.Logger

	// Tracer, if set, records spans for the run.
	Tracer *Tracer

	// Sequential runs fan-out siblings one after another in declaration order.
	Sequential bool

	// RunID labels the run in traces and logs. Generated when empty.
	RunID string
}

// Runnable is a compiled, immutable graph.
type Runnable struct {
	graph *Graph
}

// Schema returns the state schema the graph was built with.
func (r *Runnable) Schema() *Schema { return r.graph.schema }

// Invoke executes the graph with the default configuration.
func (r *Runnable) Invoke(ctx context.Context, initial Update) (State, error) {
	return r.InvokeWithConfig(ctx, initial, nil)
}

// InvokeWithConfig executes the graph from its entry point until END.
// The returned state holds everything merged so far, also when err is not nil.
func (r *Runnable) InvokeWithConfig(ctx context.Context, initial Update, config *Config) (state State, err error) {
	run := r.newRun(config)

	state = r.graph.schema.Init()
	state, err = r.graph.schema.Merge(state, initial)
	if err != nil {
		return state, fmt.Errorf("invalid initial state: %w", err)
	}

	if run.tracer != nil {
		span := run.tracer.begin(ctx, &TraceSpan{Event: TraceEventGraphStart, RunID: run.id})
		ctx = ContextWithSpan(ctx, span)
		defer func() { run.tracer.EndSpan(ctx, span, nil, err) }()
	}
	run.logger.Debug("run %s started at %s", run.id, r.graph.entryPoint)

	batch := []string{r.graph.entryPoint}
	join := ""
	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if run.steps+len(batch) > run.bound {
			return state, &StepBoundError{Bound: run.bound, Steps: run.steps, Pending: batch}
		}

		updates, err := r.runBatch(ctx, run, batch, state)
		if err != nil {
			return state, err
		}
		for _, u := range updates {
			state, err = r.graph.schema.Merge(state, u.update)
			if err != nil {
				return state, &NodeError{Node: u.node, Step: u.step, Err: err}
			}
		}

		var next []string
		if join != "" {
			// batch was a set of fan-out siblings
			next = []string{join}
			for _, s := range batch {
				run.traceEdge(ctx, s, join)
			}
			join = ""
		} else {
			next, join, err = r.successors(ctx, run, batch[0], state)
			if err != nil {
				return state, err
			}
		}
		if len(next) == 1 && next[0] == END {
			run.logger.Debug("run %s reached END after %d steps", run.id, run.steps)
			return state, nil
		}
		batch = next
	}
}

type run struct {
	id         string
	bound      int
	logger     log.Logger
	tracer     *Tracer
	sequential bool
	steps      int
}

func (r *Runnable) newRun(config *Config) *run {
	if config == nil {
		config = &Config{}
	}
	rn := &run{
		id:         config.RunID,
		bound:      config.StepBound,
		logger:     config.Logger,
		tracer:     config.Tracer,
		sequential: config.Sequential,
	}
	if rn.id == "" {
		rn.id = uuid.NewString()
	}
	if rn.bound <= 0 {
		rn.bound = DefaultStepBound
	}
	if rn.logger == nil {
		rn.logger = log.GetDefaultLogger()
	}
	return rn
}

func (rn *run) traceEdge(ctx context.Context, from, to string) {
	if rn.tracer != nil {
		rn.tracer.TraceEdgeTraversal(ctx, from, to)
	}
}

// successors resolves what follows node. For a fan-out it returns the siblings
// and the join to run after them.
func (r *Runnable) successors(ctx context.Context, rn *run, node string, state State) ([]string, string, error) {
	g := r.graph
	if e, ok := g.edges[node]; ok {
		rn.traceEdge(ctx, node, e.To)
		return []string{e.To}, "", nil
	}
	if fo, ok := g.fanOuts[node]; ok {
		for _, s := range fo.Siblings {
			rn.traceEdge(ctx, node, s)
		}
		return fo.Siblings, fo.Join, nil
	}
	if ce, ok := g.conditional[node]; ok {
		label, err := route(ctx, ce.Router, state)
		if err != nil {
			return nil, "", &NodeError{Node: node, Step: rn.steps, Err: fmt.Errorf("router %s: %w", ce.Router.Name, err)}
		}
		to, ok := ce.Mapping[label]
		if !ok {
			return nil, "", &UnknownRouteError{Node: node, Router: ce.Router.Name, Label: label}
		}
		rn.logger.Debug("router %s after %s chose %q -> %s", ce.Router.Name, node, label, to)
		rn.traceEdge(ctx, node, to)
		return []string{to}, "", nil
	}
	return nil, "", fmt.Errorf("node %s: %w", node, ErrNoOutgoingEdge)
}

func route(ctx context.Context, router Router, state State) (label string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return router.Route(ctx, state), nil
}

type nodeUpdate struct {
	node   string
	step   int
	update Update
}

// runBatch applies every node in batch to the same snapshot and returns their
// updates in completion order.
func (r *Runnable) runBatch(ctx context.Context, rn *run, batch []string, state State) ([]nodeUpdate, error) {
	first := rn.steps + 1
	rn.steps += len(batch)

	if len(batch) == 1 || rn.sequential {
		out := make([]nodeUpdate, 0, len(batch))
		for i, name := range batch {
			u, err := r.runNode(ctx, rn, name, first+i, state)
			if err != nil {
				return nil, err
			}
			out = append(out, nodeUpdate{node: name, step: first + i, update: u})
		}
		return out, nil
	}

	var (
		mu  sync.Mutex
		out = make([]nodeUpdate, 0, len(batch))
	)
	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range batch {
		step := first + i
		eg.Go(func() error {
			u, err := r.runNode(egCtx, rn, name, step, state)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, nodeUpdate{node: name, step: step, update: u})
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Runnable) runNode(ctx context.Context, rn *run, name string, step int, state State) (update Update, err error) {
	node := r.graph.nodes[name]

	var span *TraceSpan
	if rn.tracer != nil {
		span = rn.tracer.begin(ctx, &TraceSpan{Event: TraceEventNodeStart, NodeName: name, Step: step})
		ctx = ContextWithSpan(ctx, span)
	}

	if node.bestEffort != nil {
		res := callBestEffort(ctx, node.bestEffort, state)
		if res.Failed() {
			rn.logger.Warn("node %s failed, using fallback: %v", name, res.Reason())
			if span != nil {
				span.Event = TraceEventNodeFallback
				rn.tracer.EndSpan(ctx, span, res.Update(), res.Reason())
			}
			return res.Update(), nil
		}
		if span != nil {
			rn.tracer.EndSpan(ctx, span, res.Update(), nil)
		}
		return res.Update(), nil
	}

	update, err = callNode(ctx, node.Function, state)
	if span != nil {
		rn.tracer.EndSpan(ctx, span, update, err)
	}
	if err != nil {
		rn.logger.Error("node %s failed at step %d: %v", name, step, err)
		return nil, &NodeError{Node: name, Step: step, Err: err}
	}
	return update, nil
}

func callNode(ctx context.Context, fn NodeFunc, state State) (update Update, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, state)
}

func callBestEffort(ctx context.Context, fn BestEffortFunc, state State) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Failure(fmt.Errorf("panic: %v", p), nil)
		}
	}()
	return fn(ctx, state)
}
