package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

// NodeFunc is the body of a node. It reads a snapshot and returns a partial update.
type NodeFunc func(ctx context.Context, state State) (Update, error)

// Node represents a node in the graph.
type Node struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function is the function associated with the node.
	Function NodeFunc

	bestEffort BestEffortFunc
}

// BestEffort reports whether the node was registered with AddBestEffortNode.
func (n *Node) BestEffort() bool { return n.bestEffort != nil }

// Edge is an unconditional transition.
type Edge struct {
	From string
	To   string
}

// FanOut dispatches Siblings concurrently after From and continues with Join
// once every sibling's update has been merged.
type FanOut struct {
	From     string
	Siblings []string
	Join     string
}

// Router picks a label from the post-merge state. Labels lists every label the
// router can return so the mapping can be checked before execution.
type Router struct {
	Name   string
	Labels []string
	Route  func(ctx context.Context, state State) string
}

// ConditionalEdge maps router labels to successor nodes.
type ConditionalEdge struct {
	From    string
	Router  Router
	Mapping map[string]string
}

// Graph is a mutable workflow definition. Compile turns it into a Runnable.
type Graph struct {
	schema      *Schema
	nodes       map[string]*Node
	order       []string
	edges       map[string]Edge
	fanOuts     map[string]FanOut
	conditional map[string]ConditionalEdge
	entryPoint  string

	// builder errors, reported by Compile
	problems []error
}

// NewGraph creates an empty graph over the given schema.
func NewGraph(schema *Schema) *Graph {
	return &Graph{
		schema:      schema,
		nodes:       make(map[string]*Node),
		edges:       make(map[string]Edge),
		fanOuts:     make(map[string]FanOut),
		conditional: make(map[string]ConditionalEdge),
	}
}

// AddNode adds a new node to the graph.
func (g *Graph) AddNode(name, description string, fn NodeFunc) {
	g.addNode(&Node{Name: name, Description: description, Function: fn})
}

// AddBestEffortNode adds a node whose failures never abort the run. A failed
// Result contributes its placeholder update instead.
func (g *Graph) AddBestEffortNode(name, description string, fn BestEffortFunc) {
	g.addNode(&Node{Name: name, Description: description, bestEffort: fn})
}

func (g *Graph) addNode(n *Node) {
	switch {
	case n.Name == "":
		g.problems = append(g.problems, errors.New("node with empty name"))
		return
	case n.Name == END:
		g.problems = append(g.problems, fmt.Errorf("node name %q is reserved", END))
		return
	case n.Function == nil && n.bestEffort == nil:
		g.problems = append(g.problems, fmt.Errorf("node %s has no function", n.Name))
		return
	}
	if _, dup := g.nodes[n.Name]; dup {
		g.problems = append(g.problems, fmt.Errorf("node %s added twice", n.Name))
		return
	}
	g.nodes[n.Name] = n
	g.order = append(g.order, n.Name)
}

// AddEdge adds an unconditional edge from one node to another.
func (g *Graph) AddEdge(from, to string) {
	if !g.claim(from) {
		return
	}
	g.edges[from] = Edge{From: from, To: to}
}

// AddFanOut adds a fan-out edge: siblings all run against the snapshot taken
// after from, and join runs after all of them completed.
func (g *Graph) AddFanOut(from string, siblings []string, join string) {
	if !g.claim(from) {
		return
	}
	g.fanOuts[from] = FanOut{From: from, Siblings: slices.Clone(siblings), Join: join}
}

// AddConditionalEdges adds a router-driven edge from a node.
func (g *Graph) AddConditionalEdges(from string, router Router, mapping map[string]string) {
	if !g.claim(from) {
		return
	}
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	g.conditional[from] = ConditionalEdge{From: from, Router: router, Mapping: m}
}

// claim records that from has an outgoing edge. A node may own only one.
func (g *Graph) claim(from string) bool {
	_, e := g.edges[from]
	_, f := g.fanOuts[from]
	_, c := g.conditional[from]
	if e || f || c {
		g.problems = append(g.problems, fmt.Errorf("node %s has more than one outgoing edge", from))
		return false
	}
	return true
}

// SetEntryPoint sets the entry point node name for the graph.
func (g *Graph) SetEntryPoint(name string) {
	g.entryPoint = name
}

// Nodes returns the registered nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Validate checks the graph for configuration errors without compiling it.
func (g *Graph) Validate() error {
	problems := slices.Clone(g.problems)
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}
	known := func(name string) bool {
		_, ok := g.nodes[name]
		return ok
	}

	if g.schema == nil {
		add("graph has no schema")
	}
	if g.entryPoint == "" {
		problems = append(problems, ErrEntryPointNotSet)
	} else if !known(g.entryPoint) {
		add("entry point %s: %w", g.entryPoint, ErrNodeNotFound)
	}

	siblingOf := make(map[string]string)
	for _, from := range sortedKeys(g.fanOuts) {
		fo := g.fanOuts[from]
		if len(fo.Siblings) == 0 {
			add("fan-out from %s has no siblings", from)
		}
		for _, s := range fo.Siblings {
			if !known(s) {
				add("fan-out from %s to sibling %s: %w", from, s, ErrNodeNotFound)
				continue
			}
			if other, dup := siblingOf[s]; dup {
				add("node %s is a sibling of both %s and %s", s, other, from)
			}
			siblingOf[s] = from
		}
		if fo.Join != END && !known(fo.Join) {
			add("fan-out from %s to join %s: %w", from, fo.Join, ErrNodeNotFound)
		}
		if slices.Contains(fo.Siblings, fo.Join) {
			add("fan-out from %s uses %s as both sibling and join", from, fo.Join)
		}
	}

	// Siblings have no successor of their own, so only their fan-out may
	// dispatch them.
	if from, ok := siblingOf[g.entryPoint]; ok {
		add("entry point %s is a fan-out sibling of %s", g.entryPoint, from)
	}
	for _, from := range sortedKeys(g.fanOuts) {
		if j := g.fanOuts[from].Join; siblingOf[j] != "" && siblingOf[j] != from {
			add("fan-out from %s joins at %s, a fan-out sibling of %s", from, j, siblingOf[j])
		}
	}
	for _, from := range sortedKeys(g.edges) {
		if to := g.edges[from].To; siblingOf[to] != "" {
			add("edge %s -> %s targets a fan-out sibling of %s", from, to, siblingOf[to])
		}
	}
	for _, from := range sortedKeys(g.conditional) {
		ce := g.conditional[from]
		for _, label := range sortedKeys(ce.Mapping) {
			if to := ce.Mapping[label]; siblingOf[to] != "" {
				add("router %s after %s: label %q targets a fan-out sibling %s of %s", ce.Router.Name, from, label, to, siblingOf[to])
			}
		}
	}

	for _, name := range g.order {
		_, e := g.edges[name]
		_, f := g.fanOuts[name]
		_, c := g.conditional[name]
		if _, isSibling := siblingOf[name]; isSibling {
			if e || f || c {
				add("fan-out sibling %s must not have its own outgoing edge", name)
			}
			continue
		}
		if !e && !f && !c {
			add("node %s: %w", name, ErrNoOutgoingEdge)
		}
	}

	for _, from := range sortedKeys(g.edges) {
		e := g.edges[from]
		if !known(from) {
			add("edge from %s: %w", from, ErrNodeNotFound)
		}
		if e.To != END && !known(e.To) {
			add("edge %s -> %s: %w", from, e.To, ErrNodeNotFound)
		}
	}
	for _, from := range sortedKeys(g.fanOuts) {
		if !known(from) {
			add("fan-out from %s: %w", from, ErrNodeNotFound)
		}
	}
	for _, from := range sortedKeys(g.conditional) {
		ce := g.conditional[from]
		if !known(from) {
			add("conditional edge from %s: %w", from, ErrNodeNotFound)
		}
		if ce.Router.Route == nil {
			add("conditional edge from %s has no router function", from)
		}
		if len(ce.Router.Labels) == 0 {
			add("router %s after %s declares no labels", ce.Router.Name, from)
		}
		for _, label := range ce.Router.Labels {
			if _, ok := ce.Mapping[label]; !ok {
				add("router %s after %s: label %q is not mapped", ce.Router.Name, from, label)
			}
		}
		for _, label := range sortedKeys(ce.Mapping) {
			to := ce.Mapping[label]
			if to != END && !known(to) {
				add("router %s after %s: label %q targets %s: %w", ce.Router.Name, from, label, to, ErrNodeNotFound)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidGraph, errors.Join(problems...))
}

// Compile validates the graph and freezes it into a Runnable.
func (g *Graph) Compile() (*Runnable, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	frozen := &Graph{
		schema:      g.schema,
		nodes:       make(map[string]*Node, len(g.nodes)),
		order:       slices.Clone(g.order),
		edges:       make(map[string]Edge, len(g.edges)),
		fanOuts:     make(map[string]FanOut, len(g.fanOuts)),
		conditional: make(map[string]ConditionalEdge, len(g.conditional)),
		entryPoint:  g.entryPoint,
	}
	for k, v := range g.nodes {
		n := *v
		frozen.nodes[k] = &n
	}
	for k, v := range g.edges {
		frozen.edges[k] = v
	}
	for k, v := range g.fanOuts {
		frozen.fanOuts[k] = v
	}
	for k, v := range g.conditional {
		frozen.conditional[k] = v
	}
	return &Runnable{graph: frozen}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
