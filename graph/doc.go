// Package graph provides the workflow engine used by leadgraph.
//
// A workflow is a directed graph of named nodes operating on a shared state
// container. Nodes never mutate the state: each receives an immutable snapshot
// and returns a partial update that the engine merges field by field using the
// reducer declared in the Schema.
//
// # Core Concepts
//
// ## Schema and State
// A Schema declares every field of the state together with its Reducer
// (Replace or Append). Updates naming undeclared fields are rejected. An
// Overwrite value resets a field regardless of its reducer.
//
// ## Nodes and Edges
// Each node owns exactly one kind of outgoing edge:
//
//   - AddEdge: unconditional transition.
//   - AddFanOut: a fixed set of siblings that run concurrently against the same
//     snapshot, followed by a join node that runs after all of them merged.
//   - AddConditionalEdges: a Router returns a label that is looked up in a
//     label-to-node mapping. Every label a router declares must be mapped.
//
// Compile validates the whole definition before anything runs.
//
// ## Execution
// Runnable.Invoke walks the graph from the entry point until END. Every node
// application counts against the step bound (DefaultStepBound unless
// configured). Routers see the state after the preceding merge. Failures abort
// the run with an error naming the failing node or router, and the state
// merged so far is still returned.
//
// Best-effort nodes return a Result. A failed Result is logged and its
// placeholder update merged instead, so the run continues.
//
// # Example Usage
//
//	schema := graph.MustSchema(
//		graph.Field{Name: "count", Reducer: graph.Replace},
//		graph.Field{Name: "log", Reducer: graph.Append},
//	)
//	g := graph.NewGraph(schema)
//	g.AddNode("inc", "increment", func(ctx context.Context, s graph.State) (graph.Update, error) {
//		n := graph.Get[int](s, "count") + 1
//		return graph.Update{"count": n, "log": fmt.Sprintf("count=%d", n)}, nil
//	})
//	g.AddConditionalEdges("inc", graph.Router{
//		Name:   "limit",
//		Labels: []string{"again", "done"},
//		Route: func(ctx context.Context, s graph.State) string {
//			if graph.Get[int](s, "count") < 3 {
//				return "again"
//			}
//			return "done"
//		},
//	}, map[string]string{"again": "inc", "done": graph.END})
//	g.SetEntryPoint("inc")
//
//	runnable, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	final, err := runnable.Invoke(ctx, nil)
package graph
