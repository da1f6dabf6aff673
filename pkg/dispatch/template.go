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

// Package dispatch renders the bridge command from its template and runs
// it, interpreting the trailing result marker the bridge prints.
package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// DefaultHookTemplate is substituted when the configured template predates
// the task placeholder vocabulary and a PR follow-up needs dispatching.
const DefaultHookTemplate = "openclaw-dispatch-bridge {role_q} {repo_q} {task_kind_q} {task_number} {task_title_q} {task_url_q} {context_json_q}"

// baseplaceholders is the supported vocabulary, without the _q variants.
var basePlaceholders = sets.New[string](
	"role", "repo", "task_kind", "task_number", "task_title", "task_url", "context_json",
)

// legacyAliases map the pre-follow-up placeholder names onto their task
// equivalents so existing bridge wiring keeps working.
var legacyAliases = map[string]string{
	"issue_number": "task_number",
	"issue_title":  "task_title",
	"issue_url":    "task_url",
}

// Fields carries the values substituted into a hook template. All values
// are strings; TaskNumber is pre-formatted by the caller.
type Fields struct {
	Role        string
	Repo        string
	TaskKind    string
	TaskNumber  string
	TaskTitle   string
	TaskURL     string
	ContextJSON string
}

func (f *Fields) value(base string) string {
	switch base {
	case "role":
		return f.Role
	case "repo":
		return f.Repo
	case "task_kind":
		return f.TaskKind
	case "task_number":
		return f.TaskNumber
	case "task_title":
		return strings.ReplaceAll(f.TaskTitle, "\n", " ")
	case "task_url":
		return f.TaskURL
	case "context_json":
		return f.ContextJSON
	}
	return ""
}

type fragment struct {
	literal string
	// placeholder is the canonical base name; quoted marks a _q variant.
	placeholder string
	quoted      bool
}

// Template is a parsed hook command template. Parsing validates the
// placeholder vocabulary up front so rendering cannot fail.
type Template struct {
	raw       string
	fragments []fragment
	bases     sets.Set[string]
}

// Parse compiles a hook command template. Any placeholder outside the
// supported vocabulary, and any unbalanced brace, is a configuration
// error.
func Parse(raw string) (*Template, error) {
	t := &Template{raw: raw, bases: sets.New[string]()}
	rest := raw
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return nil, fmt.Errorf("hook template %q: unmatched '}'", raw)
			}
			if rest != "" {
				t.fragments = append(t.fragments, fragment{literal: rest})
			}
			return t, nil
		}
		if open > 0 {
			t.fragments = append(t.fragments, fragment{literal: rest[:open]})
		}
		rest = rest[open+1:]
		close := strings.IndexByte(rest, '}')
		if close < 0 {
			return nil, fmt.Errorf("hook template %q: unmatched '{'", raw)
		}
		name := rest[:close]
		rest = rest[close+1:]

		base := name
		quoted := false
		if strings.HasSuffix(base, "_q") {
			base = strings.TrimSuffix(base, "_q")
			quoted = true
		}
		if canonical, ok := legacyAliases[base]; ok {
			base = canonical
		}
		if !basePlaceholders.Has(base) {
			return nil, fmt.Errorf("hook template %q: unsupported placeholder {%s}", raw, name)
		}
		t.bases.Insert(base)
		t.fragments = append(t.fragments, fragment{placeholder: base, quoted: quoted})
	}
}

// String returns the template source text.
func (t *Template) String() string {
	return t.raw
}

// HasPlaceholder reports whether the template references the base
// placeholder, in plain or shell-quoted form.
func (t *Template) HasPlaceholder(base string) bool {
	return t.bases.Has(base)
}

// Render substitutes the fields into the template, shell-escaping every
// _q placeholder.
func (t *Template) Render(f *Fields) string {
	var b strings.Builder
	for _, frag := range t.fragments {
		if frag.placeholder == "" {
			b.WriteString(frag.literal)
			continue
		}
		v := f.value(frag.placeholder)
		if frag.quoted {
			v = ShellQuote(v)
		}
		b.WriteString(v)
	}
	return b.String()
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9@%+=:,./_-]+$`)

// ShellQuote returns a POSIX-shell-safe rendering of s. Strings made only
// of safe characters pass through bare; everything else is single-quoted
// with embedded quotes escaped.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
