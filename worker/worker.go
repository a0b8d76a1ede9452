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

package worker

import (
	"context"

	"axonflow/workforce/provider"
)

// Tier classifies workers by where they sit in the delegation chain.
type Tier string

const (
	TierTop  Tier = "top"
	TierMid  Tier = "mid"
	TierBase Tier = "base"
)

// TaskResult is the uniform outcome of one worker invocation. Workers never
// panic or return Go errors for bad input; they report Success=false with an
// Error string. Outcome, when set, carries the tier-typed view of Result so
// routing predicates can match variants instead of probing the map.
type TaskResult struct {
	Success bool                   `json:"success"`
	Result  map[string]interface{} `json:"result,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Outcome Outcome                `json:"-"`
}

// Worker is an independently invocable unit of business logic. ProcessTask
// implementations must tolerate arbitrary or missing input keys and must be
// safe for concurrent invocation.
type Worker interface {
	ID() string
	Kind() string
	Tier() Tier
	ProcessTask(ctx context.Context, input map[string]interface{}) TaskResult
	HealthCheck(ctx context.Context) error
}

// Outcome is the tagged result carried by a TaskResult, discriminated by the
// producing worker's tier.
type Outcome interface {
	OutcomeTier() Tier
}

// ResearchOutcome is produced by top-tier workers: context records fetched
// for the task's subject.
type ResearchOutcome struct {
	Profile *provider.Record
	Company *provider.Record
	Market  *provider.Record
}

func (ResearchOutcome) OutcomeTier() Tier { return TierTop }

// ScoreOutcome is produced by mid-tier workers: a numeric qualification
// score in [0, 100].
type ScoreOutcome struct {
	Score     float64
	Rationale string
}

func (ScoreOutcome) OutcomeTier() Tier { return TierMid }

// OutreachOutcome is produced by base-tier workers: the composed follow-up
// action for a routed lead.
type OutreachOutcome struct {
	Channel string
	Message string
}

func (OutreachOutcome) OutcomeTier() Tier { return TierBase }

// failure builds a non-panicking error result.
func failure(msg string) TaskResult {
	return TaskResult{Success: false, Error: msg}
}
