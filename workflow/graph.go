// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"fmt"

	"axonflow/workforce/worker"
)

// Predicate decides whether an edge fires, as a pure function of the run
// state and the last node's result. Predicates must not mutate either.
type Predicate func(s *State, last worker.TaskResult) bool

// Edge is one conditional transition. A nil predicate always fires, which
// makes it the default edge when listed last.
type Edge struct {
	To    string
	Label string
	When  Predicate
}

// Node is one graph position bound to a worker. Terminal nodes invoke
// nothing and end the run.
type Node struct {
	Name     string
	WorkerID string
	Terminal bool
	Edges    []Edge
}

// Graph is a fixed directed state graph with a single entry node. It is
// built once, validated before first use, and never recompiled at runtime.
type Graph struct {
	entry string
	nodes map[string]*Node
	order []string
}

// NewGraph starts a graph whose run begins at the named entry node.
func NewGraph(entry string) *Graph {
	return &Graph{
		entry: entry,
		nodes: make(map[string]*Node),
	}
}

// AddNode declares a worker-bound node.
func (g *Graph) AddNode(name, workerID string) *Graph {
	g.put(&Node{Name: name, WorkerID: workerID})
	return g
}

// AddTerminal declares a sink node that ends the run.
func (g *Graph) AddTerminal(name string) *Graph {
	g.put(&Node{Name: name, Terminal: true})
	return g
}

// AddEdge declares a transition. Edges are evaluated in declaration order;
// a nil predicate fires unconditionally.
func (g *Graph) AddEdge(from, to, label string, when Predicate) *Graph {
	if node, ok := g.nodes[from]; ok {
		node.Edges = append(node.Edges, Edge{To: to, Label: label, When: when})
	} else {
		// Record the dangling source so Validate can report it.
		g.put(&Node{Name: from, Edges: []Edge{{To: to, Label: label, When: when}}, WorkerID: ""})
	}
	return g
}

func (g *Graph) put(n *Node) {
	existing, ok := g.nodes[n.Name]
	if !ok {
		g.order = append(g.order, n.Name)
		g.nodes[n.Name] = n
		return
	}
	// Redefining a node keeps the edges declared before it, so AddEdge and
	// AddNode order does not matter.
	n.Edges = append(existing.Edges, n.Edges...)
	g.nodes[n.Name] = n
}

// Node returns a node by name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.nodes) }

// Validate checks structural soundness: the entry exists, every edge target
// exists, every non-terminal node has at least one outgoing edge, and
// worker-bound nodes name a worker. A failing graph aborts setup; nothing is
// re-checked at runtime.
func (g *Graph) Validate() error {
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("entry node %q is not defined", g.entry)
	}

	for _, name := range g.order {
		node := g.nodes[name]
		if node.Terminal {
			continue
		}
		if len(node.Edges) == 0 {
			return fmt.Errorf("node %q has no outgoing edges", name)
		}
		if node.WorkerID == "" {
			return fmt.Errorf("node %q is not bound to a worker", name)
		}
		for _, e := range node.Edges {
			if _, ok := g.nodes[e.To]; !ok {
				return fmt.Errorf("node %q has an edge to undefined node %q", name, e.To)
			}
		}
	}
	return nil
}

// next picks the first edge whose predicate fires. Returns false when no
// edge matches, which the orchestrator treats as a routing dead end.
func (g *Graph) next(node *Node, s *State, last worker.TaskResult) (Edge, bool) {
	for _, e := range node.Edges {
		if e.When == nil || e.When(s, last) {
			return e, true
		}
	}
	return Edge{}, false
}
