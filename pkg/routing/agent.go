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
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Agent serves the current routing config to request handlers. It loads
// the file once at start and reloads it when the file changes, keeping the
// last good config when a reload fails.
type Agent struct {
	path string
	log  *logrus.Entry

	mu  sync.RWMutex
	cfg *Config
}

// NewAgent returns an agent for the routing file at path.
func NewAgent(path string) *Agent {
	return &Agent{
		path: path,
		log:  logrus.WithField("component", "routing-agent"),
	}
}

// Start performs the initial load and begins watching the file for
// changes until ctx is done.
func (a *Agent) Start(ctx context.Context) error {
	cfg, err := Load(a.path)
	if err != nil {
		return err
	}
	a.Set(cfg)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors and config mounts commonly replace the
	// file, which drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(a.path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(a.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(a.path)
				if err != nil {
					a.log.WithError(err).Warn("Routing reload failed, keeping previous config.")
					continue
				}
				a.Set(cfg)
				a.log.Info("Routing config reloaded.")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				a.log.WithError(err).Warn("Routing watcher error.")
			}
		}
	}()
	return nil
}

// Set replaces the served config.
func (a *Agent) Set(cfg *Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
}

// Config returns the currently served config, or an empty config before
// the first successful load.
func (a *Agent) Config() *Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.cfg == nil {
		return &Config{}
	}
	return a.cfg
}
