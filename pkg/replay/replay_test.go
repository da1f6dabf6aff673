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

package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/openclaw/issue-dispatcher/pkg/github"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func ids(deliveries []github.HookDelivery) []int64 {
	out := make([]int64, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, d.ID)
	}
	return out
}

func TestSelectFiltersSuccessRedeliveryOldAndIrrelevantEvents(t *testing.T) {
	t.Parallel()
	now := mustParse(t, "2026-02-26T01:00:00Z")
	deliveries := []github.HookDelivery{
		{ID: 1, Event: "issue_comment", StatusCode: 503, DeliveredAt: mustParse(t, "2026-02-26T00:17:54Z")},
		{ID: 2, Event: "issue_comment", StatusCode: 200, DeliveredAt: mustParse(t, "2026-02-26T00:18:54Z")},
		{ID: 3, Event: "ping", StatusCode: 503, DeliveredAt: mustParse(t, "2026-02-26T00:18:54Z")},
		{ID: 4, Event: "pull_request_review", StatusCode: 503, Redelivery: true, DeliveredAt: mustParse(t, "2026-02-26T00:18:54Z")},
		{ID: 5, Event: "issues", StatusCode: 503, DeliveredAt: mustParse(t, "2000-01-01T00:00:00Z")},
	}

	got := Select(deliveries, now, 24*time.Hour, 25)
	if diff := cmp.Diff([]int64{1}, ids(got)); diff != "" {
		t.Errorf("selected ids mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectAppliesMaxLimitKeepingMostRecent(t *testing.T) {
	t.Parallel()
	now := mustParse(t, "2026-02-26T01:00:00Z")
	deliveries := []github.HookDelivery{
		{ID: 10, Event: "issue_comment", StatusCode: 503, DeliveredAt: mustParse(t, "2026-02-26T00:10:00Z")},
		{ID: 11, Event: "issue_comment", StatusCode: 503, DeliveredAt: mustParse(t, "2026-02-26T00:11:00Z")},
		{ID: 12, Event: "issue_comment", StatusCode: 503, DeliveredAt: mustParse(t, "2026-02-26T00:12:00Z")},
	}

	got := Select(deliveries, now, 10*365*24*time.Hour, 2)
	if diff := cmp.Diff([]int64{11, 12}, ids(got)); diff != "" {
		t.Errorf("selected ids mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectReturnsOldestFirst(t *testing.T) {
	t.Parallel()
	now := mustParse(t, "2026-02-26T01:00:00Z")
	deliveries := []github.HookDelivery{
		{ID: 2, Event: "issues", StatusCode: 500, DeliveredAt: mustParse(t, "2026-02-26T00:30:00Z")},
		{ID: 1, Event: "issues", StatusCode: 500, DeliveredAt: mustParse(t, "2026-02-26T00:20:00Z")},
	}
	got := Select(deliveries, now, 24*time.Hour, 25)
	if diff := cmp.Diff([]int64{1, 2}, ids(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

type fakeClient struct {
	deliveries []github.HookDelivery
	listErr    error
	failIDs    map[int64]bool
	redelivers []int64
}

func (f *fakeClient) ListHookDeliveries(_ context.Context, _ string, _ int64) ([]github.HookDelivery, error) {
	return f.deliveries, f.listErr
}

func (f *fakeClient) RedeliverHookDelivery(_ context.Context, _ string, _, deliveryID int64) error {
	if f.failIDs[deliveryID] {
		return errors.New("boom")
	}
	f.redelivers = append(f.redelivers, deliveryID)
	return nil
}

func TestRun(t *testing.T) {
	t.Parallel()
	recent := time.Now().Add(-time.Hour)
	c := &fakeClient{
		deliveries: []github.HookDelivery{
			{ID: 1, Event: "issues", StatusCode: 503, DeliveredAt: recent},
			{ID: 2, Event: "issues", StatusCode: 502, DeliveredAt: recent.Add(time.Minute)},
			{ID: 3, Event: "issues", StatusCode: 200, DeliveredAt: recent},
		},
		failIDs: map[int64]bool{2: true},
	}

	sum, err := Run(context.Background(), c, "openclaw/hoopsmania", 12, 24*time.Hour, 25)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum.Examined != 3 || sum.Selected != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if diff := cmp.Diff([]int64{1}, sum.Replayed); diff != "" {
		t.Errorf("replayed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{2}, sum.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
}

func TestRunListError(t *testing.T) {
	t.Parallel()
	c := &fakeClient{listErr: errors.New("api down")}
	if _, err := Run(context.Background(), c, "openclaw/hoopsmania", 12, 0, 0); err == nil {
		t.Fatal("expected error when listing fails")
	}
}
