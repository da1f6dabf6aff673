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

package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMarkProcessedRoundtrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := New(dir)
	s.Load()

	require.False(t, s.SeenDelivery("d-1"))
	require.NoError(t, s.MarkProcessed("d-1", "fp-1"))
	require.True(t, s.SeenDelivery("d-1"))
	require.True(t, s.SeenFingerprint("fp-1"))

	// A fresh store over the same directory sees the same state.
	s2 := New(dir)
	s2.Load()
	require.True(t, s2.SeenDelivery("d-1"))
	require.True(t, s2.SeenFingerprint("fp-1"))
	require.False(t, s2.SeenDelivery("d-2"))
}

func TestEmptyDeliveryNeverSeen(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())
	s.Load()
	require.NoError(t, s.MarkProcessed("", "fp-1"))
	require.False(t, s.SeenDelivery(""))
}

func TestLoadLegacyFlatMap(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	legacy := []byte(`{"d-old": true}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProcessedFile), legacy, 0o644))

	s := New(dir)
	s.Load()
	require.True(t, s.SeenDelivery("d-old"))
	require.False(t, s.SeenFingerprint("d-old"))
}

func TestLoadMalformedFilesStartEmpty(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProcessedFile), []byte("{broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FollowupsFile), []byte("{broken"), 0o644))

	s := New(dir)
	s.Load()
	require.False(t, s.SeenDelivery("anything"))
	_, ok := s.Task("openclaw/hoopsmania#7")
	require.False(t, ok)
}

func TestTaskRoundtrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := New(dir)
	s.Load()

	task := FollowupTask{
		ID:        "openclaw/hoopsmania#7",
		Repo:      "openclaw/hoopsmania",
		PRNumber:  7,
		PRTitle:   "fix auth",
		Status:    StatusOpen,
		CreatedAt: "2026-02-26T00:17:54Z",
		UpdatedAt: "2026-02-26T00:17:54Z",
	}
	task.Normalize(task.ID)
	require.NoError(t, s.PutTask(task))

	got, ok := s.Task(task.ID)
	require.True(t, ok)
	if diff := cmp.Diff(task, got); diff != "" {
		t.Errorf("task mismatch (-want +got):\n%s", diff)
	}

	// Mutating the returned copy must not leak into the store.
	got.PRTitle = "changed"
	again, _ := s.Task(task.ID)
	require.Equal(t, "fix auth", again.PRTitle)

	s2 := New(dir)
	s2.Load()
	reloaded, ok := s2.Task(task.ID)
	require.True(t, ok)
	require.Equal(t, task.PRTitle, reloaded.PRTitle)
}

func TestLoadNormalizesOldTaskShapes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// A record written before the checklist and event log existed.
	raw := []byte(`{"tasks":{"openclaw/hoopsmania#7":{"pr_number":7,"status":"open"}}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FollowupsFile), raw, 0o644))

	s := New(dir)
	s.Load()
	task, ok := s.Task("openclaw/hoopsmania#7")
	require.True(t, ok)
	require.Equal(t, "openclaw/hoopsmania#7", task.ID)
	require.Equal(t, "openclaw/hoopsmania", task.Repo)
	require.NotNil(t, task.Events)
	require.NotNil(t, task.CommentPermalinks)
	require.Equal(t, RequiredActionChecklist, task.RequiredActionChecklist)
}

func TestWriteFileIsValidPrettyJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := New(dir)
	s.Load()
	require.NoError(t, s.MarkProcessed("d-1", "fp-1"))

	raw, err := os.ReadFile(filepath.Join(dir, ProcessedFile))
	require.NoError(t, err)
	var ps ProcessedState
	require.NoError(t, json.Unmarshal(raw, &ps))
	require.True(t, ps.Deliveries["d-1"])
	require.Contains(t, string(raw), "\n  ")
}

func TestKeyLockIsStablePerKey(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())
	if s.KeyLock("a") != s.KeyLock("a") {
		t.Error("same key must return the same lock")
	}
	if s.KeyLock("a") == s.KeyLock("b") {
		t.Error("distinct keys must not share a lock")
	}
}

func TestTaskKey(t *testing.T) {
	t.Parallel()
	require.Equal(t, "openclaw/hoopsmania#74", TaskKey("openclaw/hoopsmania", 74))
}
