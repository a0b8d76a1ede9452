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
	"fmt"
	"strings"

	"axonflow/workforce/provider"
)

// baseWorker carries the identity and bound provider shared by the builtin
// worker kinds. The provider is set once at creation and never swapped.
type baseWorker struct {
	id       string
	kind     string
	tier     Tier
	provider provider.Provider
}

func (w *baseWorker) ID() string   { return w.id }
func (w *baseWorker) Kind() string { return w.kind }
func (w *baseWorker) Tier() Tier   { return w.tier }

// HealthCheck reports the bound provider's status; a degraded provider does
// not fail the worker, only a missing one does.
func (w *baseWorker) HealthCheck(ctx context.Context) error {
	if w.provider == nil {
		return fmt.Errorf("worker %s has no bound provider", w.id)
	}
	return nil
}

// ResearcherWorker (top tier) enriches a task with profile, company, and
// market context fetched through the provider chain.
type ResearcherWorker struct {
	baseWorker
}

func (w *ResearcherWorker) ProcessTask(ctx context.Context, input map[string]interface{}) TaskResult {
	leadID, _ := stringField(input, "lead_id")
	if leadID == "" {
		return failure("input is missing lead_id")
	}
	companyID, _ := stringField(input, "company_id")
	region, _ := stringField(input, "region")

	outcome := ResearchOutcome{
		Profile: w.provider.GetResource(ctx, "profileData", leadID, nil),
	}
	if companyID != "" {
		outcome.Company = w.provider.GetResource(ctx, "companyData", companyID, nil)
	}
	if region != "" {
		outcome.Market = w.provider.GetResource(ctx, "marketData", region, nil)
	}

	result := map[string]interface{}{
		"lead_id": leadID,
		"profile": outcome.Profile.Fields,
	}
	if outcome.Company != nil {
		result["company"] = outcome.Company.Fields
	}
	if outcome.Market != nil {
		result["market"] = outcome.Market.Fields
	}

	return TaskResult{Success: true, Result: result, Outcome: outcome}
}

// AnalystWorker (mid tier) scores a lead from whatever context the input
// carries. The heuristic is deterministic so runs are reproducible.
type AnalystWorker struct {
	baseWorker
}

func (w *AnalystWorker) ProcessTask(ctx context.Context, input map[string]interface{}) TaskResult {
	score := 40.0
	var reasons []string

	if profile, ok := input["profile"].(map[string]interface{}); ok {
		if seniority, _ := stringField(profile, "seniority"); seniority != "" {
			switch strings.ToLower(seniority) {
			case "c-level", "vp":
				score += 30
				reasons = append(reasons, "senior decision maker")
			case "director", "manager":
				score += 15
				reasons = append(reasons, "mid-level decision maker")
			}
		}
		if _, degraded := profile["synthesized"]; degraded {
			score -= 10
			reasons = append(reasons, "profile from fallback data")
		}
	}

	if company, ok := input["company"].(map[string]interface{}); ok {
		if employees, ok := numericField(company, "employees"); ok && employees >= 200 {
			score += 20
			reasons = append(reasons, "enterprise headcount")
		}
	}

	if market, ok := input["market"].(map[string]interface{}); ok {
		if growth, ok := numericField(market, "growth"); ok && growth > 0.10 {
			score += 10
			reasons = append(reasons, "growing market")
		}
	}

	if override, ok := numericField(input, "score"); ok {
		// Callers can pin the score, used by replays and tests.
		score = override
		reasons = []string{"score supplied by caller"}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	outcome := ScoreOutcome{Score: score, Rationale: strings.Join(reasons, "; ")}
	return TaskResult{
		Success: true,
		Result: map[string]interface{}{
			"score":     score,
			"rationale": outcome.Rationale,
		},
		Outcome: outcome,
	}
}

// OutreachWorker (base tier) composes the follow-up action for a lead that
// has been routed into a band.
type OutreachWorker struct {
	baseWorker
	channel string
}

func (w *OutreachWorker) ProcessTask(ctx context.Context, input map[string]interface{}) TaskResult {
	leadID, _ := stringField(input, "lead_id")
	band, _ := stringField(input, "band")
	if band == "" {
		band = "unqualified"
	}

	message := fmt.Sprintf("Follow up with lead %s via %s (band: %s)", leadID, w.channel, band)
	outcome := OutreachOutcome{Channel: w.channel, Message: message}
	return TaskResult{
		Success: true,
		Result: map[string]interface{}{
			"channel": w.channel,
			"message": message,
		},
		Outcome: outcome,
	}
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok
}

func numericField(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
