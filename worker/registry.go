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
	"fmt"
	"sort"

	"axonflow/workforce/provider"
)

// Factory builds one worker bound to a provider.
type Factory func(id string, p provider.Provider) Worker

// KindSpec declares one registered worker kind. The kind table is fixed at
// compile time; there is no runtime discovery.
type KindSpec struct {
	Kind        string
	DisplayName string
	Tier        Tier
	New         Factory
}

// builtinKinds is the static worker-kind table.
var builtinKinds = map[string]KindSpec{
	"researcher": {
		Kind:        "researcher",
		DisplayName: "Lead Researcher",
		Tier:        TierTop,
		New: func(id string, p provider.Provider) Worker {
			return &ResearcherWorker{baseWorker{id: id, kind: "researcher", tier: TierTop, provider: p}}
		},
	},
	"analyst": {
		Kind:        "analyst",
		DisplayName: "Qualification Analyst",
		Tier:        TierMid,
		New: func(id string, p provider.Provider) Worker {
			return &AnalystWorker{baseWorker{id: id, kind: "analyst", tier: TierMid, provider: p}}
		},
	},
	"outreach": {
		Kind:        "outreach",
		DisplayName: "Outreach Composer",
		Tier:        TierBase,
		New: func(id string, p provider.Provider) Worker {
			return &OutreachWorker{
				baseWorker: baseWorker{id: id, kind: "outreach", tier: TierBase, provider: p},
				channel:    "email",
			}
		},
	},
}

// LookupKind resolves a registered kind.
func LookupKind(kind string) (KindSpec, error) {
	spec, ok := builtinKinds[kind]
	if !ok {
		return KindSpec{}, fmt.Errorf("unknown worker kind %q", kind)
	}
	return spec, nil
}

// Kinds returns every registered kind name in sorted order.
func Kinds() []string {
	names := make([]string, 0, len(builtinKinds))
	for name := range builtinKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
