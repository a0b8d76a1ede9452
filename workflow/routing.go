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
	"os"
	"strconv"

	"axonflow/workforce/worker"
)

// Band labels for the reference routing policy.
const (
	BandHot  = "hot"
	BandWarm = "warm"
	BandCold = "cold"
)

// Thresholds define contiguous score bands with inclusive lower bounds.
// Must satisfy Hot > Warm > Cold; a score on a boundary lands in the higher
// band.
type Thresholds struct {
	Hot  float64
	Warm float64
	Cold float64
}

// DefaultThresholds is the reference policy: >=90 hot, >=70 warm, >=50 cold.
var DefaultThresholds = Thresholds{Hot: 90, Warm: 70, Cold: 50}

// ThresholdsFromEnv reads WORKFLOW_SCORE_HOT/WARM/COLD, falling back to the
// defaults for unset or unparseable values.
func ThresholdsFromEnv() Thresholds {
	return Thresholds{
		Hot:  envFloat("WORKFLOW_SCORE_HOT", DefaultThresholds.Hot),
		Warm: envFloat("WORKFLOW_SCORE_WARM", DefaultThresholds.Warm),
		Cold: envFloat("WORKFLOW_SCORE_COLD", DefaultThresholds.Cold),
	}
}

// BandFor maps a score to its band. Scores below the cold threshold get "",
// meaning no band qualifies and routing falls through to the terminal edge.
func (t Thresholds) BandFor(score float64) string {
	switch {
	case score >= t.Hot:
		return BandHot
	case score >= t.Warm:
		return BandWarm
	case score >= t.Cold:
		return BandCold
	default:
		return ""
	}
}

// ScoreOf extracts the score from a result, preferring the typed mid-tier
// outcome over probing the payload map. The map path exists only for
// replayed states whose tagged outcome did not survive serialization.
func ScoreOf(last worker.TaskResult) (float64, bool) {
	if outcome, ok := last.Outcome.(worker.ScoreOutcome); ok {
		return outcome.Score, true
	}
	if v, ok := last.Result["score"].(float64); ok {
		return v, true
	}
	return 0, false
}

// ScoreAtLeast builds a predicate firing when the last result carries a
// score at or above min. Failed results never fire.
func ScoreAtLeast(min float64) Predicate {
	return func(s *State, last worker.TaskResult) bool {
		if !last.Success {
			return false
		}
		score, ok := ScoreOf(last)
		return ok && score >= min
	}
}

// InBand builds a predicate firing when the score lands in the named band
// under the given thresholds.
func InBand(t Thresholds, band string) Predicate {
	return func(s *State, last worker.TaskResult) bool {
		if !last.Success {
			return false
		}
		score, ok := ScoreOf(last)
		return ok && t.BandFor(score) == band
	}
}

// OnSuccess fires for any successful result.
func OnSuccess() Predicate {
	return func(s *State, last worker.TaskResult) bool {
		return last.Success
	}
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
