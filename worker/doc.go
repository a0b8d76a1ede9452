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
Package worker manages the lifecycle of business workers: creation from a
static kind table, binding each worker to its own data provider, periodic
health sweeps, and best-effort mirroring of worker records to Postgres.

Worker kinds are fixed at compile time in the builtin kind table; there is
no reflection or runtime discovery. Each worker's ProcessTask follows one
contract: tolerate arbitrary input, never panic, report failure as
Success=false with an error string. Results additionally carry a tier-tagged
Outcome so routing code can match typed variants.

The lifecycle manager is an explicit object passed to its consumers. Its
external store mirror retries a bounded number of times and then drops the
write with a log line and a Prometheus counter increment; persistence never
blocks or fails worker creation.
*/
package worker
