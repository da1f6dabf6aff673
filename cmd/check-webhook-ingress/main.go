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

// check-webhook-ingress scans the recent webhook delivery log for 5xx
// failures and optionally posts an alert comment.
//
// Exit codes: 0 clean window, 1 failures detected, 2 usage or API error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openclaw/issue-dispatcher/pkg/flagutil"
	"github.com/openclaw/issue-dispatcher/pkg/notify"
)

type options struct {
	repo            string
	hookID          int64
	lookback        time.Duration
	alertIssue      int
	alertWebhookURL string

	github flagutil.GitHubOptions
}

type failedDelivery struct {
	ID          int64     `json:"id"`
	Event       string    `json:"event"`
	Action      string    `json:"action"`
	StatusCode  int       `json:"status_code"`
	DeliveredAt time.Time `json:"delivered_at"`
	Redelivery  bool      `json:"redelivery"`
}

type summary struct {
	Repo          string           `json:"repo"`
	HookID        int64            `json:"hook_id"`
	LookbackMins  int              `json:"lookback_minutes"`
	CheckedRecent int              `json:"checked_recent"`
	Failed5xx     []failedDelivery `json:"failed_5xx"`
}

func parseOptions() options {
	var o options
	var lookbackMinutes int
	flags := flag.CommandLine
	flags.StringVar(&o.repo, "repo", "", "Repository as owner/name. Required.")
	flags.Int64Var(&o.hookID, "hook-id", 0, "Webhook id to inspect. Required.")
	flags.IntVar(&lookbackMinutes, "lookback-minutes", 20, "Monitoring window in minutes.")
	flags.IntVar(&o.alertIssue, "alert-issue", 0, "Post an alert comment to this issue number on failures.")
	flags.StringVar(&o.alertWebhookURL, "alert-webhook-url", "", "Also post alerts to this chat webhook URL on failures.")
	o.github.AddFlags(flags)
	flags.Parse(os.Args[1:])

	o.lookback = time.Duration(lookbackMinutes) * time.Minute
	if o.repo == "" || !strings.Contains(o.repo, "/") || o.hookID == 0 {
		fmt.Fprintln(os.Stderr, "error: --repo owner/name and --hook-id are required")
		os.Exit(2)
	}
	if err := o.github.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	return o
}

func alertBody(sum *summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Webhook ingress alert: detected 5xx deliveries in monitoring window.\n\n")
	fmt.Fprintf(&b, "- repo: `%s`\n- hook id: `%d`\n- lookback: `%dm`\n- failures: `%d`\n\n",
		sum.Repo, sum.HookID, sum.LookbackMins, len(sum.Failed5xx))
	b.WriteString("Recent failed deliveries:\n")
	failed := sum.Failed5xx
	if len(failed) > 20 {
		failed = failed[:20]
	}
	for _, f := range failed {
		fmt.Fprintf(&b, "- id `%d` `%s/%s` status `%d` at `%s` redelivery=`%t`\n",
			f.ID, f.Event, f.Action, f.StatusCode, f.DeliveredAt.Format(time.RFC3339), f.Redelivery)
	}
	return b.String()
}

func main() {
	o := parseOptions()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("component", "ingress-check")

	ghc, err := o.github.Client()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deliveries, err := ghc.ListHookDeliveries(ctx, o.repo, o.hookID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: listing deliveries: %v\n", err)
		os.Exit(2)
	}

	cutoff := time.Now().Add(-o.lookback)
	sum := &summary{
		Repo:         o.repo,
		HookID:       o.hookID,
		LookbackMins: int(o.lookback / time.Minute),
		Failed5xx:    []failedDelivery{},
	}
	for _, d := range deliveries {
		if d.DeliveredAt.Before(cutoff) {
			continue
		}
		sum.CheckedRecent++
		if d.StatusCode < 500 {
			continue
		}
		sum.Failed5xx = append(sum.Failed5xx, failedDelivery{
			ID:          d.ID,
			Event:       d.Event,
			Action:      d.Action,
			StatusCode:  d.StatusCode,
			DeliveredAt: d.DeliveredAt,
			Redelivery:  d.Redelivery,
		})
	}

	out, _ := json.MarshalIndent(sum, "", "  ")
	fmt.Println(string(out))

	if len(sum.Failed5xx) > 0 {
		if o.alertIssue > 0 {
			if err := ghc.CreateComment(ctx, o.repo, o.alertIssue, alertBody(sum)); err != nil {
				log.WithError(err).Warn("Posting alert comment failed.")
			}
		}
		if o.alertWebhookURL != "" {
			nc := notify.NewClient(o.alertWebhookURL)
			if err := nc.WriteMessage(ctx, "webhook ingress alert", alertBody(sum)); err != nil {
				log.WithError(err).Warn("Posting chat alert failed.")
			}
		}
	}
	if len(sum.Failed5xx) > 0 {
		os.Exit(1)
	}
}
