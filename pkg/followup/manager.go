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

// Package followup maintains the persistent per-pull-request feedback
// tasks and the closure gate that decides when they are done.
package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openclaw/issue-dispatcher/pkg/github"
	"github.com/openclaw/issue-dispatcher/pkg/routing"
	"github.com/openclaw/issue-dispatcher/pkg/state"
)

// Defaults for the security review gate.
const (
	DefaultSecurityReviewer = "locktrace"
	DefaultOverrideLabel    = "locktrace-override"
)

// DefaultSecurityLabels flag a pull request for mandatory security review.
var DefaultSecurityLabels = []string{"security", "security-review"}

// ForgeOps is the forge capability surface the manager needs. The
// concrete implementation is github.Client; tests inject a fake.
type ForgeOps interface {
	routing.FileLister
	AllThreadsResolved(ctx context.Context, repo string, number int) *bool
	ChecksGreen(ctx context.Context, repo string, number int) *bool
	LatestReviewStateBy(ctx context.Context, repo string, number int, login string) string
}

// Options tune the security review gate.
type Options struct {
	// SecurityReviewer is the login whose approval closes security-flagged
	// tasks.
	SecurityReviewer string
	// OverrideLabel bypasses the security reviewer gate when present on
	// the pull request.
	OverrideLabel string
	// SecurityLabels mark a PR as requiring security review.
	SecurityLabels []string
	// SecurityPaths are path prefixes whose changes require security
	// review.
	SecurityPaths []string
}

func (o *Options) setDefaults() {
	if o.SecurityReviewer == "" {
		o.SecurityReviewer = DefaultSecurityReviewer
	}
	if o.OverrideLabel == "" {
		o.OverrideLabel = DefaultOverrideLabel
	}
	if o.SecurityLabels == nil {
		o.SecurityLabels = DefaultSecurityLabels
	}
}

// Manager creates, updates and closes follow-up tasks.
type Manager struct {
	store *state.Store
	forge ForgeOps
	opts  Options
	log   *logrus.Entry
	now   func() time.Time
}

// NewManager wires a manager over the store and forge.
func NewManager(store *state.Store, forge ForgeOps, opts Options) *Manager {
	opts.setDefaults()
	return &Manager{
		store: store,
		forge: forge,
		opts:  opts,
		log:   logrus.WithField("component", "followup"),
		now:   time.Now,
	}
}

// CreateOrUpdate applies one piece of PR feedback to the task record for
// its pull request, creating the record on first contact. Any feedback
// reopens a closed task. It returns the resulting task and whether it was
// newly created.
func (m *Manager) CreateOrUpdate(ctx context.Context, fb *Feedback, cfg *routing.Config) (state.FollowupTask, bool, error) {
	if fb.Repo == "" || fb.PRNumber == 0 {
		return state.FollowupTask{}, false, fmt.Errorf("%w: missing repo or PR number", ErrNotPRFeedback)
	}
	key := state.TaskKey(fb.Repo, fb.PRNumber)
	lock := m.store.KeyLock(key)
	lock.Lock()
	defer lock.Unlock()

	now := m.now().UTC().Format(time.RFC3339)
	task, ok := m.store.Task(key)
	isNew := !ok
	if isNew {
		task = state.FollowupTask{
			ID:        key,
			Repo:      fb.Repo,
			PRNumber:  fb.PRNumber,
			Status:    state.StatusOpen,
			CreatedAt: now,
		}
	}
	task.Normalize(key)

	task.PRTitle = fb.PRTitle
	task.PRURL = fb.PRURL
	task.Labels = append([]string(nil), fb.Labels...)

	pr := &github.PullRequest{
		Number: fb.PRNumber,
		Title:  fb.PRTitle,
		Body:   fb.PRBody,
		Labels: toLabels(fb.Labels),
	}
	role := routing.NormalizeRole(routing.RoutePRFeedback(ctx, m.forge, fb.Repo, pr, cfg), cfg, true)
	task.Role = role
	if task.OwnerRole == "" {
		task.OwnerRole = role
	}
	if m.securityFlagged(ctx, fb) {
		// Monotone: never cleared once set.
		task.SecurityReviewRequired = true
	}

	task.Status = state.StatusOpen
	task.ClosedAt = nil

	if fb.Permalink != "" && !contains(task.CommentPermalinks, fb.Permalink) {
		task.CommentPermalinks = append(task.CommentPermalinks, fb.Permalink)
	}

	duplicate := false
	if n := len(task.Events); n > 0 {
		last := task.Events[n-1]
		duplicate = last.Delivery == fb.Delivery && last.CommentID == fb.CommentID
	}
	if duplicate {
		task.LastEventDuplicate = true
	} else {
		task.EventSequence++
		task.LastEventDuplicate = false
	}
	task.Events = append(task.Events, state.TaskEvent{
		Event:     fb.Event,
		Action:    fb.Action,
		Source:    fb.Source,
		Sender:    fb.Sender,
		At:        now,
		Delivery:  fb.Delivery,
		CommentID: fb.CommentID,
	})
	task.UpdatedAt = now

	if err := m.store.PutTask(task); err != nil {
		return state.FollowupTask{}, false, err
	}
	m.log.WithFields(logrus.Fields{
		"task":     key,
		"role":     task.Role,
		"sequence": task.EventSequence,
		"new":      isNew,
	}).Info("Follow-up updated.")
	return task, isNew, nil
}

func (m *Manager) securityFlagged(ctx context.Context, fb *Feedback) bool {
	for _, l := range fb.Labels {
		for _, want := range m.opts.SecurityLabels {
			if strings.EqualFold(l, want) {
				return true
			}
		}
	}
	if fb.Event == "pull_request_review" && strings.EqualFold(fb.ReviewerLogin, m.opts.SecurityReviewer) {
		return true
	}
	if len(m.opts.SecurityPaths) > 0 {
		for _, f := range m.forge.PullRequestFiles(ctx, fb.Repo, fb.PRNumber) {
			for _, p := range m.opts.SecurityPaths {
				if p != "" && strings.HasPrefix(f, p) {
					return true
				}
			}
		}
	}
	return false
}

// ClosureGates lists the conditions the task must meet to close, for
// inclusion in the dispatch context.
func (m *Manager) ClosureGates(task *state.FollowupTask) []string {
	gates := []string{"all review threads resolved", "checks green"}
	if task.SecurityReviewRequired && !task.HasLabel(m.opts.OverrideLabel) {
		gates = append(gates, fmt.Sprintf("%s approval", m.opts.SecurityReviewer))
	}
	return gates
}

// AttemptClose evaluates the closure gate for the task under key and
// closes it when every required condition holds. The reason explains the
// outcome either way; forge query failures read as "unavailable" and keep
// the task open.
func (m *Manager) AttemptClose(ctx context.Context, key string) (bool, string, error) {
	lock := m.store.KeyLock(key)
	lock.Lock()
	defer lock.Unlock()

	task, ok := m.store.Task(key)
	if !ok {
		return false, "no follow-up task on record", nil
	}

	var missing []string
	switch threads := m.forge.AllThreadsResolved(ctx, task.Repo, task.PRNumber); {
	case threads == nil:
		missing = append(missing, "review thread status unavailable")
	case !*threads:
		missing = append(missing, "unresolved review threads")
	}
	switch checks := m.forge.ChecksGreen(ctx, task.Repo, task.PRNumber); {
	case checks == nil:
		missing = append(missing, "check status unavailable")
	case !*checks:
		missing = append(missing, "checks not green")
	}
	if task.SecurityReviewRequired && !task.HasLabel(m.opts.OverrideLabel) {
		if st := m.forge.LatestReviewStateBy(ctx, task.Repo, task.PRNumber, m.opts.SecurityReviewer); st != "APPROVED" {
			missing = append(missing, fmt.Sprintf("%s approval required", m.opts.SecurityReviewer))
		}
	}

	if len(missing) > 0 {
		return false, strings.Join(missing, "; "), nil
	}

	now := m.now().UTC().Format(time.RFC3339)
	task.Status = state.StatusClosed
	task.ClosedAt = &now
	task.UpdatedAt = now
	if err := m.store.PutTask(task); err != nil {
		return false, "", err
	}
	m.log.WithField("task", key).Info("Follow-up closed.")
	return true, "all review threads resolved and checks green", nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func toLabels(names []string) []github.Label {
	labels := make([]github.Label, 0, len(names))
	for _, n := range names {
		labels = append(labels, github.Label{Name: n})
	}
	return labels
}
