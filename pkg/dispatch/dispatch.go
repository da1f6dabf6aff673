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

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// MarkerPrefix starts the bridge's final stdout line; the remainder of
// that line is the JSON dispatch marker.
const MarkerPrefix = "OPENCLAW_DISPATCH_RESULT "

// DefaultTimeout bounds one bridge invocation.
const DefaultTimeout = 45 * time.Second

// Marker is the structured result the bridge prints on its last stdout
// line. Status "ok" is the only success value.
type Marker struct {
	Status     string `json:"status"`
	RunID      string `json:"run_id,omitempty"`
	TargetKind string `json:"target_kind,omitempty"`
	Target     string `json:"target,omitempty"`
}

// ParseMarker scans stdout from the last line backward for the marker
// prefix and decodes the JSON that follows it. It returns nil when no
// line carries a well-formed marker.
func ParseMarker(stdout string) *Marker {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, MarkerPrefix) {
			continue
		}
		var m Marker
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, MarkerPrefix)), &m); err != nil {
			return nil
		}
		return &m
	}
	return nil
}

// OK is the dispatch success predicate: a clean exit AND a marker whose
// status is "ok". A zero exit without a valid marker is not success.
func OK(exitCode int, marker *Marker) bool {
	return exitCode == 0 && marker != nil && marker.Status == "ok"
}

// Result captures one bridge invocation.
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Marker   *Marker
	TimedOut bool
	Duration time.Duration
}

// OK reports whether the invocation counts as a successful dispatch.
func (r *Result) OK() bool {
	return !r.TimedOut && OK(r.ExitCode, r.Marker)
}

// Runner executes rendered hook commands through a shell.
type Runner struct {
	timeout time.Duration
	log     *logrus.Entry
}

// NewRunner returns a runner with the given per-invocation timeout; zero
// selects DefaultTimeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		timeout: timeout,
		log:     logrus.WithField("component", "dispatch"),
	}
}

// Run spawns cmd via `sh -c`, captures stdout and stderr separately and
// parses the marker. The error return covers spawn failures only; a
// non-zero exit or timeout is reported through the Result.
func (r *Runner) Run(ctx context.Context, cmd string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := &Result{
		Command:  cmd,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}
	switch {
	case err == nil:
		res.ExitCode = 0
	default:
		var exit *exec.ExitError
		if !errors.As(err, &exit) && !res.TimedOut {
			return nil, err
		}
		res.ExitCode = -1
		if c.ProcessState != nil {
			res.ExitCode = c.ProcessState.ExitCode()
		}
	}
	res.Marker = ParseMarker(res.Stdout)

	r.log.WithFields(logrus.Fields{
		"exit":      res.ExitCode,
		"timed_out": res.TimedOut,
		"duration":  res.Duration.Round(time.Millisecond).String(),
	}).Info("Hook finished.")
	return res, nil
}
