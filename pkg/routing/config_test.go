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
	"os"
	"path/filepath"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
)

const routingYAML = `default_role: ctrl^core
default_pr_role: docdrip
rules:
  - name: ci
    title_contains: ["ci"]
    role: pipewire
pr_rules:
  - name: security
    any_paths: ["pkg/auth/"]
    role: locktrace
`

func writeRouting(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routing.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeRouting(t, routingYAML))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DefaultRole != "ctrl^core" || cfg.DefaultPRRole != "docdrip" {
		t.Errorf("defaults = %q, %q", cfg.DefaultRole, cfg.DefaultPRRole)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Role != "pipewire" {
		t.Errorf("rules = %+v", cfg.Rules)
	}

	want := sets.New[string]("ctrl^core", "docdrip", "pipewire", "locktrace")
	if got := cfg.KnownRoles(); !got.Equal(want) {
		t.Errorf("KnownRoles() = %v, want %v", sets.List(got), sets.List(want))
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	if _, err := Load(writeRouting(t, "default_role: x\nbogus_key: y\n")); err == nil {
		t.Fatal("expected error on unknown field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error on missing file")
	}
}

func TestAgentReload(t *testing.T) {
	t.Parallel()
	path := writeRouting(t, routingYAML)
	agent := NewAgent(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := agent.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if got := agent.Config().DefaultRole; got != "ctrl^core" {
		t.Fatalf("initial default role = %q", got)
	}

	if err := os.WriteFile(path, []byte("default_role: pipewire\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if agent.Config().DefaultRole == "pipewire" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("config did not reload after file change")
}

func TestAgentKeepsLastGoodConfig(t *testing.T) {
	t.Parallel()
	path := writeRouting(t, routingYAML)
	agent := NewAgent(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := agent.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A broken write must not evict the served config.
	time.Sleep(300 * time.Millisecond)
	if got := agent.Config().DefaultRole; got != "ctrl^core" {
		t.Fatalf("default role after broken reload = %q, want ctrl^core", got)
	}
}
