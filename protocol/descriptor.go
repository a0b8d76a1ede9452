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

package protocol

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Transport names used as keys in ServerDescriptor.Endpoints.
const (
	TransportHTTP   = "http"
	TransportStream = "stream"
)

// AuthSpec declares how calls to a server are authenticated. Secrets are
// resolved at Connect time; a missing secret is a connect failure, never a
// per-call one.
type AuthSpec struct {
	Type      string `yaml:"type" json:"type"` // bearer, api_key, jwt, none
	Token     string `yaml:"token,omitempty" json:"-"`
	APIKey    string `yaml:"api_key,omitempty" json:"-"`
	KeyHeader string `yaml:"key_header,omitempty" json:"key_header,omitempty"`
	Secret    string `yaml:"secret,omitempty" json:"-"`
	// SecretEnv names an environment variable holding the credential. When
	// set it takes priority over the inline value.
	SecretEnv string `yaml:"secret_env,omitempty" json:"secret_env,omitempty"`
}

// Capability is one declared (resource types x methods) block a server
// supports, with scores used for selection.
type Capability struct {
	ResourceTypes []string `yaml:"resource_types" json:"resource_types"`
	Methods       []string `yaml:"methods" json:"methods"`
	QualityScore  float64  `yaml:"quality_score" json:"quality_score"`
	CostPerCall   float64  `yaml:"cost_per_call" json:"cost_per_call"`
}

// Supports reports whether this capability covers the given pair.
func (c *Capability) Supports(resourceType string, method Method) bool {
	typeOK := false
	for _, rt := range c.ResourceTypes {
		if rt == resourceType || rt == "*" {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return false
	}
	for _, m := range c.Methods {
		if m == string(method) || m == "*" {
			return true
		}
	}
	return false
}

// ServerDescriptor describes one remote protocol server. Descriptors are
// loaded at startup and treated as immutable afterwards.
type ServerDescriptor struct {
	Name         string            `yaml:"name" json:"name"`
	Version      string            `yaml:"version" json:"version"`
	Endpoints    map[string]string `yaml:"endpoints" json:"endpoints"` // transport -> base URL
	Auth         AuthSpec          `yaml:"auth" json:"auth"`
	Capabilities []Capability      `yaml:"capabilities" json:"capabilities"`
}

// Endpoint returns the base URL for a transport, or "" if not declared.
func (d *ServerDescriptor) Endpoint(transport string) string {
	return d.Endpoints[transport]
}

// Supports reports whether any capability covers the given pair.
func (d *ServerDescriptor) Supports(resourceType string, method Method) bool {
	for i := range d.Capabilities {
		if d.Capabilities[i].Supports(resourceType, method) {
			return true
		}
	}
	return false
}

// CapabilityFor returns the first capability covering the pair, if any.
func (d *ServerDescriptor) CapabilityFor(resourceType string, method Method) (*Capability, bool) {
	for i := range d.Capabilities {
		if d.Capabilities[i].Supports(resourceType, method) {
			return &d.Capabilities[i], true
		}
	}
	return nil, false
}

// Validate checks the descriptor is complete enough to build a client from.
func (d *ServerDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("server descriptor requires a name")
	}
	if len(d.Endpoints) == 0 {
		return fmt.Errorf("server %q declares no endpoints", d.Name)
	}
	if len(d.Capabilities) == 0 {
		return fmt.Errorf("server %q declares no capabilities", d.Name)
	}
	for i, cap := range d.Capabilities {
		if len(cap.ResourceTypes) == 0 || len(cap.Methods) == 0 {
			return fmt.Errorf("server %q capability %d is missing resource types or methods", d.Name, i)
		}
	}
	switch d.Auth.Type {
	case "", "none", "bearer", "api_key", "jwt":
	default:
		return fmt.Errorf("server %q has unknown auth type %q", d.Name, d.Auth.Type)
	}
	return nil
}

// serverFile is the on-disk YAML shape for server descriptors.
type serverFile struct {
	Servers []ServerDescriptor `yaml:"servers"`
}

// LoadServerDescriptors loads and validates all server descriptors from a
// YAML file.
func LoadServerDescriptors(path string) ([]ServerDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read server file %s: %w", path, err)
	}
	return ParseServerDescriptors(data)
}

// ParseServerDescriptors parses descriptors from YAML bytes.
func ParseServerDescriptors(data []byte) ([]ServerDescriptor, error) {
	var file serverFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse server file: %w", err)
	}

	seen := make(map[string]bool, len(file.Servers))
	for i := range file.Servers {
		if err := file.Servers[i].Validate(); err != nil {
			return nil, err
		}
		name := file.Servers[i].Name
		if seen[name] {
			return nil, fmt.Errorf("duplicate server name %q", name)
		}
		seen[name] = true
	}

	return file.Servers, nil
}
