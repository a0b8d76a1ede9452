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

/*
Package workflow executes tasks over a directed state graph whose edges are
chosen by pure predicates over worker results.

A graph is built once, validated (entry defined, every non-terminal node has
an outgoing edge and a worker binding, every edge target exists), and never
recompiled. At run time each node resolves its worker from the lifecycle
manager; a missing worker, a failed invocation, a panic, or a timeout all
become history entries, never run aborts. History is append-only.

Routing predicates prefer the tier-tagged Outcome on a result (for example
worker.ScoreOutcome from the analyst) over probing the payload map, and
threshold bands have inclusive lower bounds: a score exactly on a boundary
lands in the higher band.
*/
package workflow
