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
	"context"
	"strings"
	"testing"
	"time"
)

func TestParseMarker(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name   string
		stdout string
		want   *Marker
	}{
		{
			name:   "marker on last line",
			stdout: "working...\nOPENCLAW_DISPATCH_RESULT {\"status\":\"ok\",\"run_id\":\"r-1\"}\n",
			want:   &Marker{Status: "ok", RunID: "r-1"},
		},
		{
			name:   "trailing chatter after the marker line",
			stdout: "OPENCLAW_DISPATCH_RESULT {\"status\":\"error\"}\nsome shutdown noise\n",
			want:   &Marker{Status: "error"},
		},
		{
			name:   "no marker",
			stdout: "done\n",
		},
		{
			name:   "malformed marker JSON",
			stdout: "OPENCLAW_DISPATCH_RESULT {broken\n",
		},
		{
			name: "empty stdout",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseMarker(tc.stdout)
			switch {
			case tc.want == nil && got != nil:
				t.Errorf("ParseMarker() = %+v, want nil", got)
			case tc.want != nil && (got == nil || *got != *tc.want):
				t.Errorf("ParseMarker() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestOK(t *testing.T) {
	t.Parallel()
	if !OK(0, &Marker{Status: "ok"}) {
		t.Error("OK(0, ok marker) = false")
	}
	if OK(1, &Marker{Status: "ok"}) {
		t.Error("non-zero exit must not be OK")
	}
	if OK(0, &Marker{Status: "error"}) {
		t.Error("error marker must not be OK")
	}
	if OK(0, nil) {
		t.Error("missing marker must not be OK")
	}
}

func TestRunnerSuccess(t *testing.T) {
	t.Parallel()
	r := NewRunner(10 * time.Second)
	res, err := r.Run(context.Background(), `echo start; echo 'OPENCLAW_DISPATCH_RESULT {"status":"ok","run_id":"r-9"}'`)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("Run() not OK: exit=%d marker=%+v", res.ExitCode, res.Marker)
	}
	if res.Marker.RunID != "r-9" {
		t.Errorf("marker = %+v", res.Marker)
	}
	if !strings.Contains(res.Stdout, "start") {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestRunnerFailureExit(t *testing.T) {
	t.Parallel()
	r := NewRunner(10 * time.Second)
	res, err := r.Run(context.Background(), `echo 'OPENCLAW_DISPATCH_RESULT {"status":"ok"}'; echo oops >&2; exit 3`)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.OK() {
		t.Error("non-zero exit reported as OK")
	}
	if res.ExitCode != 3 {
		t.Errorf("exit = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "oops") {
		t.Errorf("stderr = %q", res.Stderr)
	}
}

func TestRunnerZeroExitWithoutMarker(t *testing.T) {
	t.Parallel()
	r := NewRunner(10 * time.Second)
	res, err := r.Run(context.Background(), "true")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.OK() {
		t.Error("zero exit without a marker must not be OK")
	}
}

func TestRunnerTimeout(t *testing.T) {
	t.Parallel()
	r := NewRunner(200 * time.Millisecond)
	res, err := r.Run(context.Background(), "sleep 5")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut")
	}
	if res.OK() {
		t.Error("timed-out run reported as OK")
	}
}
