// Copyright 2025 AxonFlow
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axonflow/workforce/worker"
)

func TestGraphValidate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Graph
		wantErr string
	}{
		{
			name: "valid",
			build: func() *Graph {
				g := NewGraph("a")
				g.AddNode("a", "researcher")
				g.AddTerminal("end")
				g.AddEdge("a", "end", "", nil)
				return g
			},
		},
		{
			name: "missing entry",
			build: func() *Graph {
				g := NewGraph("missing")
				g.AddTerminal("end")
				return g
			},
			wantErr: "entry node",
		},
		{
			name: "non-terminal without edges",
			build: func() *Graph {
				g := NewGraph("a")
				g.AddNode("a", "researcher")
				return g
			},
			wantErr: "no outgoing edges",
		},
		{
			name: "edge to undefined node",
			build: func() *Graph {
				g := NewGraph("a")
				g.AddNode("a", "researcher")
				g.AddEdge("a", "ghost", "", nil)
				return g
			},
			wantErr: "undefined node",
		},
		{
			name: "node without worker binding",
			build: func() *Graph {
				g := NewGraph("a")
				g.AddEdge("a", "end", "", nil)
				g.AddTerminal("end")
				return g
			},
			wantErr: "not bound to a worker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGraphNextEvaluatesEdgesInOrder(t *testing.T) {
	g := NewGraph("a")
	g.AddNode("a", "w")
	g.AddTerminal("first")
	g.AddTerminal("second")
	g.AddTerminal("fallback")
	g.AddEdge("a", "first", "", func(s *State, last worker.TaskResult) bool { return false })
	g.AddEdge("a", "second", "", func(s *State, last worker.TaskResult) bool { return last.Success })
	g.AddEdge("a", "fallback", "", nil)

	node, _ := g.Node("a")

	edge, ok := g.next(node, &State{}, worker.TaskResult{Success: true})
	require.True(t, ok)
	assert.Equal(t, "second", edge.To)

	edge, ok = g.next(node, &State{}, worker.TaskResult{Success: false})
	require.True(t, ok)
	assert.Equal(t, "fallback", edge.To)
}

func TestGraphEdgesDeclaredBeforeNodeSurvive(t *testing.T) {
	g := NewGraph("a")
	g.AddEdge("a", "end", "", nil)
	g.AddNode("a", "researcher")
	g.AddTerminal("end")

	require.NoError(t, g.Validate())

	node, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "researcher", node.WorkerID)
	require.Len(t, node.Edges, 1)
	assert.Equal(t, "end", node.Edges[0].To)
}

func TestGraphRedefinitionMergesEdges(t *testing.T) {
	g := NewGraph("a")
	g.AddNode("a", "w")
	g.AddEdge("a", "early", "", nil)
	g.AddNode("a", "w2")
	g.AddEdge("a", "late", "", nil)
	g.AddTerminal("early")
	g.AddTerminal("late")

	node, _ := g.Node("a")
	assert.Equal(t, "w2", node.WorkerID)
	require.Len(t, node.Edges, 2)
	assert.Equal(t, "early", node.Edges[0].To)
	assert.Equal(t, "late", node.Edges[1].To)
}

func TestGraphNextNoMatch(t *testing.T) {
	g := NewGraph("a")
	g.AddNode("a", "w")
	g.AddTerminal("end")
	g.AddEdge("a", "end", "", func(s *State, last worker.TaskResult) bool { return false })

	node, _ := g.Node("a")
	_, ok := g.next(node, &State{}, worker.TaskResult{})
	assert.False(t, ok)
}

func TestLeadQualificationGraphIsValid(t *testing.T) {
	g := LeadQualificationGraph(DefaultThresholds)
	require.NoError(t, g.Validate())
	assert.Equal(t, 4, g.Len())
}
