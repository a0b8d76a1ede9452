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

// LeadQualificationGraph is the reference workflow: research enriches the
// lead, the analyst scores it, qualified bands route through outreach, and
// everything below the cold threshold ends the run. The research node always
// proceeds to scoring, even when enrichment failed; the analyst scores on
// whatever context survived.
func LeadQualificationGraph(t Thresholds) *Graph {
	g := NewGraph("research")

	g.AddNode("research", "researcher")
	g.AddNode("score", "analyst")
	g.AddNode("outreach", "outreach")
	g.AddTerminal("end")

	g.AddEdge("research", "score", "", nil)

	g.AddEdge("score", "outreach", BandHot, InBand(t, BandHot))
	g.AddEdge("score", "outreach", BandWarm, InBand(t, BandWarm))
	g.AddEdge("score", "outreach", BandCold, InBand(t, BandCold))
	g.AddEdge("score", "end", "", nil)

	g.AddEdge("outreach", "end", "", nil)

	return g
}
