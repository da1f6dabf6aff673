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

// Package replay re-requests recent failed webhook deliveries so that
// outage windows on the receiver do not lose events.
package replay

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openclaw/issue-dispatcher/pkg/github"
)

// Defaults for delivery selection.
const (
	DefaultLookback = 24 * time.Hour
	DefaultMax      = 25
)

// client is the forge surface the tool needs; github.Client implements it.
type client interface {
	ListHookDeliveries(ctx context.Context, repo string, hookID int64) ([]github.HookDelivery, error)
	RedeliverHookDelivery(ctx context.Context, repo string, hookID, deliveryID int64) error
}

// Select filters the delivery log down to the entries worth replaying:
// original (non-redelivery) attempts that failed with a 5xx, within the
// lookback window, for an event the receiver consumes. The most recent
// max entries are kept and returned oldest first.
func Select(deliveries []github.HookDelivery, now time.Time, lookback time.Duration, max int) []github.HookDelivery {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if max <= 0 {
		max = DefaultMax
	}
	cutoff := now.Add(-lookback)

	var picked []github.HookDelivery
	for _, d := range deliveries {
		if d.Redelivery {
			continue
		}
		if d.StatusCode < 500 {
			continue
		}
		if d.DeliveredAt.Before(cutoff) {
			continue
		}
		if !github.DispatchEvents.Has(d.Event) {
			continue
		}
		picked = append(picked, d)
	}
	sort.Slice(picked, func(i, j int) bool {
		return picked[i].DeliveredAt.Before(picked[j].DeliveredAt)
	})
	if len(picked) > max {
		picked = picked[len(picked)-max:]
	}
	return picked
}

// Summary reports one replay run.
type Summary struct {
	Repo     string  `json:"repo"`
	HookID   int64   `json:"hook_id"`
	Examined int     `json:"examined"`
	Selected int     `json:"selected"`
	Replayed []int64 `json:"replayed"`
	Failed   []int64 `json:"failed"`
}

// Run lists the hook's deliveries, selects the failed ones and asks the
// forge to redeliver each. Individual redelivery failures are collected,
// not fatal.
func Run(ctx context.Context, c client, repo string, hookID int64, lookback time.Duration, max int) (*Summary, error) {
	log := logrus.WithFields(logrus.Fields{"repo": repo, "hook": hookID})

	deliveries, err := c.ListHookDeliveries(ctx, repo, hookID)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries for %s hook %d: %w", repo, hookID, err)
	}
	picked := Select(deliveries, time.Now(), lookback, max)

	sum := &Summary{
		Repo:     repo,
		HookID:   hookID,
		Examined: len(deliveries),
		Selected: len(picked),
		Replayed: []int64{},
		Failed:   []int64{},
	}
	for _, d := range picked {
		if err := c.RedeliverHookDelivery(ctx, repo, hookID, d.ID); err != nil {
			log.WithError(err).WithField("delivery", d.ID).Warn("Redelivery request failed.")
			sum.Failed = append(sum.Failed, d.ID)
			continue
		}
		log.WithFields(logrus.Fields{"delivery": d.ID, "event": d.Event}).Info("Requested redelivery.")
		sum.Replayed = append(sum.Replayed, d.ID)
	}
	return sum, nil
}
