/*
Copyright 2026 The OpenClaw Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package routing matches inbound issues and pull request feedback against
// the declarative rule-set and resolves the responsible role.
package routing

import (
	"fmt"
	"os"

	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/yaml"
)

// TriageRole is the hard fallback when the rule-set provides no usable
// default.
const TriageRole = "ctrl^core"

// IssueRule routes an issue to a role. Label matches are case-insensitive
// exact; text matches are case-insensitive substring.
type IssueRule struct {
	Name          string   `json:"name,omitempty"`
	AnyLabels     []string `json:"any_labels,omitempty"`
	TitleContains []string `json:"title_contains,omitempty"`
	BodyContains  []string `json:"body_contains,omitempty"`
	Role          string   `json:"role"`
}

// PRRule routes pull request feedback to a role. AnyPaths entries are
// path prefixes matched against the PR's changed files.
type PRRule struct {
	Name          string   `json:"name,omitempty"`
	AnyLabels     []string `json:"any_labels,omitempty"`
	AnyPaths      []string `json:"any_paths,omitempty"`
	TitleContains []string `json:"title_contains,omitempty"`
	BodyContains  []string `json:"body_contains,omitempty"`
	Role          string   `json:"role"`
}

// Config is the routing rule-set.
type Config struct {
	DefaultRole   string      `json:"default_role"`
	DefaultPRRole string      `json:"default_pr_role"`
	Rules         []IssueRule `json:"rules,omitempty"`
	PRRules       []PRRule    `json:"pr_rules,omitempty"`
}

// Load reads and parses the routing file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading routing file: %w", err)
	}
	var cfg Config
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing routing file %s: %w", path, err)
	}
	return &cfg, nil
}

// KnownRoles returns every role the rule-set can produce.
func (c *Config) KnownRoles() sets.Set[string] {
	roles := sets.New[string]()
	if c.DefaultRole != "" {
		roles.Insert(c.DefaultRole)
	}
	if c.DefaultPRRole != "" {
		roles.Insert(c.DefaultPRRole)
	}
	for _, r := range c.Rules {
		if r.Role != "" {
			roles.Insert(r.Role)
		}
	}
	for _, r := range c.PRRules {
		if r.Role != "" {
			roles.Insert(r.Role)
		}
	}
	return roles
}
