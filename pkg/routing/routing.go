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

package routing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/openclaw/issue-dispatcher/pkg/github"
)

// FileLister fetches the changed file paths of a pull request. A nil
// result means the listing was unavailable; path rules then do not match.
type FileLister interface {
	PullRequestFiles(ctx context.Context, repo string, number int) []string
}

func containsAny(haystack string, needles []string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if n != "" && strings.Contains(h, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func lowerSet(values []string) sets.Set[string] {
	s := sets.New[string]()
	for _, v := range values {
		if v != "" {
			s.Insert(strings.ToLower(v))
		}
	}
	return s
}

// RouteIssue matches an issue against the rule list and returns the chosen
// role, whether the match is confident, and the reason. An ambiguous match
// set or a match on the default role falls back to triage without
// confidence.
func RouteIssue(issue *github.Issue, cfg *Config) (string, bool, string) {
	labels := lowerSet(github.LabelNames(issue.Labels))

	matched := sets.New[string]()
	for _, rule := range cfg.Rules {
		if rule.Role == "" {
			continue
		}
		switch {
		case len(rule.AnyLabels) > 0 && labels.HasAny(sets.List(lowerSet(rule.AnyLabels))...):
			matched.Insert(rule.Role)
		case len(rule.TitleContains) > 0 && containsAny(issue.Title, rule.TitleContains):
			matched.Insert(rule.Role)
		case len(rule.BodyContains) > 0 && containsAny(issue.Body, rule.BodyContains):
			matched.Insert(rule.Role)
		}
	}

	switch matched.Len() {
	case 0:
		return cfg.DefaultRole, false, "no routing rule matched"
	case 1:
		role, _ := matched.PopAny()
		if role == cfg.DefaultRole {
			return cfg.DefaultRole, false, "matched default triage role"
		}
		return role, true, "single confident role match"
	default:
		roles := sets.List(matched)
		sort.Strings(roles)
		return cfg.DefaultRole, false, fmt.Sprintf("ambiguous role matches: %s", strings.Join(roles, ", "))
	}
}

// RoutePRFeedback evaluates pr_rules in order and returns the role of the
// first rule whose label, changed-path, title or body predicate matches,
// else the default PR role. Changed files are fetched at most once.
func RoutePRFeedback(ctx context.Context, files FileLister, repo string, pr *github.PullRequest, cfg *Config) string {
	labels := lowerSet(github.LabelNames(pr.Labels))

	var changed []string
	fetched := false
	changedFiles := func() []string {
		if !fetched {
			fetched = true
			if files != nil {
				changed = files.PullRequestFiles(ctx, repo, pr.Number)
			}
		}
		return changed
	}

	for _, rule := range cfg.PRRules {
		if rule.Role == "" {
			continue
		}
		if len(rule.AnyLabels) > 0 && labels.HasAny(sets.List(lowerSet(rule.AnyLabels))...) {
			return rule.Role
		}
		if len(rule.AnyPaths) > 0 && anyPathMatches(changedFiles(), rule.AnyPaths) {
			return rule.Role
		}
		if len(rule.TitleContains) > 0 && containsAny(pr.Title, rule.TitleContains) {
			return rule.Role
		}
		if len(rule.BodyContains) > 0 && containsAny(pr.Body, rule.BodyContains) {
			return rule.Role
		}
	}
	return cfg.DefaultPRRole
}

func anyPathMatches(files, prefixes []string) bool {
	for _, f := range files {
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(f, p) {
				return true
			}
		}
	}
	return false
}

// NormalizeRole resolves a role candidate against the known-role set of the
// rule-set. Unknown or empty candidates fall back to the relevant default,
// and finally to the triage sentinel.
func NormalizeRole(role string, cfg *Config, isPR bool) string {
	if role != "" && cfg.KnownRoles().Has(role) {
		return role
	}
	fallback := cfg.DefaultRole
	if isPR {
		fallback = cfg.DefaultPRRole
	}
	if fallback == "" {
		return TriageRole
	}
	return fallback
}
