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

// Package state persists the dispatcher's two on-disk structures: the
// processed-delivery set and the follow-up task map. Both live as pretty
// JSON under a configurable state directory so operators can audit them.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// File names under the state directory.
const (
	ProcessedFile = "processed_deliveries.json"
	FollowupsFile = "review_followups.json"
)

// ProcessedState is the persistent dedup record: delivery ids and content
// fingerprints already dispatched.
type ProcessedState struct {
	Deliveries   map[string]bool `json:"deliveries"`
	Fingerprints map[string]bool `json:"fingerprints"`
}

type followupFile struct {
	Tasks map[string]*FollowupTask `json:"tasks"`
}

// Store keeps both structures in memory and writes them through to disk on
// every mutation. It does not re-read the files per request; the receiver
// is the only writer.
type Store struct {
	dir string
	log *logrus.Entry

	mu        sync.Mutex
	processed ProcessedState

	fmu   sync.Mutex
	tasks map[string]*FollowupTask

	lockMu   sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// New returns a store rooted at dir. Call Load before use.
func New(dir string) *Store {
	return &Store{
		dir: dir,
		log: logrus.WithField("component", "state"),
		processed: ProcessedState{
			Deliveries:   map[string]bool{},
			Fingerprints: map[string]bool{},
		},
		tasks:    map[string]*FollowupTask{},
		keyLocks: map[string]*sync.Mutex{},
	}
}

// Load reads both files. Absent or malformed files yield empty defaults;
// a legacy delivery-only flat map is accepted and normalized on the next
// write.
func (s *Store) Load() {
	s.mu.Lock()
	s.processed = s.loadProcessed()
	s.mu.Unlock()

	s.fmu.Lock()
	s.tasks = s.loadFollowups()
	s.fmu.Unlock()
}

func (s *Store) loadProcessed() ProcessedState {
	empty := ProcessedState{Deliveries: map[string]bool{}, Fingerprints: map[string]bool{}}
	raw, err := os.ReadFile(filepath.Join(s.dir, ProcessedFile))
	if err != nil {
		return empty
	}
	var shaped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shaped); err != nil {
		s.log.WithError(err).Warn("Processed-delivery file unreadable, starting empty.")
		return empty
	}
	_, hasDeliveries := shaped["deliveries"]
	_, hasFingerprints := shaped["fingerprints"]
	if hasDeliveries || hasFingerprints {
		var ps ProcessedState
		if err := json.Unmarshal(raw, &ps); err != nil {
			s.log.WithError(err).Warn("Processed-delivery file unreadable, starting empty.")
			return empty
		}
		if ps.Deliveries == nil {
			ps.Deliveries = map[string]bool{}
		}
		if ps.Fingerprints == nil {
			ps.Fingerprints = map[string]bool{}
		}
		return ps
	}
	// Legacy format: a flat {delivery_id: true} map.
	legacy := map[string]bool{}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		s.log.WithError(err).Warn("Processed-delivery file unreadable, starting empty.")
		return empty
	}
	return ProcessedState{Deliveries: legacy, Fingerprints: map[string]bool{}}
}

func (s *Store) loadFollowups() map[string]*FollowupTask {
	raw, err := os.ReadFile(filepath.Join(s.dir, FollowupsFile))
	if err != nil {
		return map[string]*FollowupTask{}
	}
	var f followupFile
	if err := json.Unmarshal(raw, &f); err != nil {
		s.log.WithError(err).Warn("Follow-up file unreadable, starting empty.")
		return map[string]*FollowupTask{}
	}
	if f.Tasks == nil {
		return map[string]*FollowupTask{}
	}
	for key, task := range f.Tasks {
		task.Normalize(key)
	}
	return f.Tasks
}

func (s *Store) writeFile(name string, value interface{}) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// SeenDelivery reports whether a delivery id was already processed. Empty
// ids are never considered seen.
func (s *Store) SeenDelivery(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed.Deliveries[id]
}

// SeenFingerprint reports whether a content fingerprint was already
// processed.
func (s *Store) SeenFingerprint(fp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed.Fingerprints[fp]
}

// MarkProcessed records a delivery id (when non-empty) and a fingerprint
// and writes the file through.
func (s *Store) MarkProcessed(delivery, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if delivery != "" {
		s.processed.Deliveries[delivery] = true
	}
	if fp != "" {
		s.processed.Fingerprints[fp] = true
	}
	return s.writeFile(ProcessedFile, s.processed)
}

// Task returns a copy of the follow-up task under key.
func (s *Store) Task(key string) (FollowupTask, bool) {
	s.fmu.Lock()
	defer s.fmu.Unlock()
	task, ok := s.tasks[key]
	if !ok {
		return FollowupTask{}, false
	}
	return *task, true
}

// PutTask stores the task under its id and writes the file through.
func (s *Store) PutTask(task FollowupTask) error {
	s.fmu.Lock()
	defer s.fmu.Unlock()
	t := task
	s.tasks[t.ID] = &t
	return s.writeFile(FollowupsFile, followupFile{Tasks: s.tasks})
}

// KeyLock returns the serialization lock for a follow-up key. Handlers
// hold it around the load-modify-save of that key.
func (s *Store) KeyLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if _, ok := s.keyLocks[key]; !ok {
		s.keyLocks[key] = &sync.Mutex{}
	}
	return s.keyLocks[key]
}
