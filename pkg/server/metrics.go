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

package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	webhookCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_webhooks_total",
		Help: "Webhook deliveries received, by event type.",
	}, []string{"event_type"})

	responseCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_responses_total",
		Help: "Webhook responses sent, by status code.",
	}, []string{"status_code"})

	dispatchCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_hook_dispatches_total",
		Help: "Bridge dispatches, by task kind and outcome.",
	}, []string{"task_kind", "outcome"})
)

func init() {
	prometheus.MustRegister(webhookCounter, responseCounter, dispatchCounter)
}

func recordResponse(code int) {
	responseCounter.WithLabelValues(strconv.Itoa(code)).Inc()
}

func recordDispatch(kind string, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	dispatchCounter.WithLabelValues(kind, outcome).Inc()
}
