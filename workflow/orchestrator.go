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
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"axonflow/workforce/shared/logger"
	"axonflow/workforce/worker"
)

// DefaultNodeTimeout bounds each worker invocation inside a run.
const DefaultNodeTimeout = 30 * time.Second

var workflowNodeOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "workforce_workflow_node_total",
		Help: "Node visits by node name and outcome",
	},
	[]string{"node", "status"},
)

func init() {
	prometheus.MustRegister(workflowNodeOutcomes)
}

// WorkerSource resolves node worker bindings at run time. The lifecycle
// manager satisfies this.
type WorkerSource interface {
	Get(id string) (worker.Worker, bool)
}

// Orchestrator executes runs over one validated graph. A single run is
// strictly sequential; independent runs may execute concurrently against
// the same orchestrator and worker source.
type Orchestrator struct {
	graph       *Graph
	workers     WorkerSource
	nodeTimeout time.Duration
	log         *logger.Logger
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithNodeTimeout overrides the per-node invocation timeout.
func WithNodeTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.nodeTimeout = d }
}

// NewOrchestrator validates the graph and builds an executor over it. An
// invalid graph fails here, never mid-run.
func NewOrchestrator(g *Graph, workers WorkerSource, opts ...OrchestratorOption) (*Orchestrator, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow graph: %w", err)
	}

	o := &Orchestrator{
		graph:       g,
		workers:     workers,
		nodeTimeout: DefaultNodeTimeout,
		log:         logger.New("workflow"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run drives one state from the entry node to a terminal node. A node
// failure never aborts the run: missing workers append a not_found entry,
// failures and timeouts append an error entry, and routing proceeds through
// whichever edge still fires. Run always terminates.
func (o *Orchestrator) Run(ctx context.Context, state *State) *State {
	start := time.Now()
	state.Status = StatusRunning
	node := o.graph.nodes[o.graph.entry]

	// A run can visit each node a bounded number of times before something
	// is wrong with the predicates; cap total steps so a cyclic graph can
	// never hang a run.
	maxSteps := o.graph.Len() * 4

	for step := 0; ; step++ {
		if node.Terminal {
			state.CurrentWorkerID = ""
			if state.Status == StatusRunning {
				state.Status = StatusDone
			}
			o.log.InfoWithDuration(state.TaskID, "", "Run completed",
				float64(time.Since(start).Milliseconds()), map[string]interface{}{
					"terminal": node.Name,
					"steps":    len(state.History),
					"status":   string(state.Status),
				})
			return state
		}

		if step >= maxSteps {
			state.Status = StatusError
			state.appendEntry(HistoryEntry{
				Node:   node.Name,
				Status: EntryError,
				Error:  "step budget exceeded",
			})
			o.log.Error(state.TaskID, "", "Run exceeded step budget", map[string]interface{}{
				"node": node.Name,
			})
			return state
		}

		last := o.visit(ctx, node, state)

		edge, ok := o.graph.next(node, state, last)
		if !ok {
			// No predicate fired. The graph validated, so this means the
			// edge set is not exhaustive for this result; end the run
			// rather than loop.
			state.Status = StatusError
			o.log.Error(state.TaskID, "", "No edge matched", map[string]interface{}{
				"node": node.Name,
			})
			return state
		}

		if edge.Label != "" {
			state.InputData["band"] = edge.Label
		}
		node = o.graph.nodes[edge.To]
	}
}

// visit invokes one node's worker and appends the history entry.
func (o *Orchestrator) visit(ctx context.Context, node *Node, state *State) worker.TaskResult {
	w, ok := o.workers.Get(node.WorkerID)
	if !ok {
		workflowNodeOutcomes.WithLabelValues(node.Name, EntryNotFound).Inc()
		state.appendEntry(HistoryEntry{
			Node:     node.Name,
			WorkerID: node.WorkerID,
			Status:   EntryNotFound,
		})
		o.log.Warn(state.TaskID, "", "Worker not registered", map[string]interface{}{
			"node":      node.Name,
			"worker_id": node.WorkerID,
		})
		return worker.TaskResult{Success: false, Error: "worker not registered"}
	}

	state.CurrentWorkerID = w.ID()
	result := o.invoke(ctx, w, state.InputData)

	if result.Success {
		workflowNodeOutcomes.WithLabelValues(node.Name, EntrySuccess).Inc()
		state.appendEntry(HistoryEntry{
			Node:          node.Name,
			WorkerID:      w.ID(),
			Tier:          w.Tier(),
			Status:        EntrySuccess,
			ResultPayload: result.Result,
		})
		state.mergeResult(result.Result)
	} else {
		workflowNodeOutcomes.WithLabelValues(node.Name, EntryError).Inc()
		state.appendEntry(HistoryEntry{
			Node:     node.Name,
			WorkerID: w.ID(),
			Tier:     w.Tier(),
			Status:   EntryError,
			Error:    result.Error,
		})
	}
	return result
}

// invoke runs ProcessTask under the node timeout, converting panics and
// timeouts into failed results.
func (o *Orchestrator) invoke(ctx context.Context, w worker.Worker, input map[string]interface{}) worker.TaskResult {
	callCtx, cancel := context.WithTimeout(ctx, o.nodeTimeout)
	defer cancel()

	done := make(chan worker.TaskResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- worker.TaskResult{Success: false, Error: fmt.Sprintf("worker panicked: %v", r)}
			}
		}()
		done <- w.ProcessTask(callCtx, input)
	}()

	select {
	case result := <-done:
		return result
	case <-callCtx.Done():
		return worker.TaskResult{Success: false, Error: fmt.Sprintf("worker %s timed out: %v", w.ID(), callCtx.Err())}
	}
}
