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
	"strconv"
	"strings"
)

// Task status values.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// RequiredActionChecklist is the fixed checklist stamped on every
// follow-up task for the downstream worker.
var RequiredActionChecklist = []string{
	"Read every review comment linked from this task",
	"Address or answer each comment and resolve its thread",
	"Re-run checks and request re-review once all feedback is handled",
}

// TaskEvent is one entry of a follow-up task's append-only event log. The
// (Delivery, CommentID) pair is the stable identity used for duplicate
// detection against the most recent entry.
type TaskEvent struct {
	Event     string `json:"event"`
	Action    string `json:"action"`
	Source    string `json:"source"`
	Sender    string `json:"sender"`
	At        string `json:"at"`
	Delivery  string `json:"delivery,omitempty"`
	CommentID int64  `json:"comment_id,omitempty"`
}

// FollowupTask is the persistent record tracking outstanding review
// feedback on one pull request. Tasks are keyed "<owner>/<repo>#<number>"
// and never deleted.
type FollowupTask struct {
	ID       string `json:"id"`
	Repo     string `json:"repo"`
	PRNumber int    `json:"pr_number"`
	PRTitle  string `json:"pr_title"`
	PRURL    string `json:"pr_url"`

	Role                   string `json:"role"`
	OwnerRole              string `json:"owner_role"`
	SecurityReviewRequired bool   `json:"security_review_required"`

	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	ClosedAt  *string `json:"closed_at"`

	CommentPermalinks       []string    `json:"comment_permalinks"`
	Events                  []TaskEvent `json:"events"`
	Labels                  []string    `json:"labels"`
	RequiredActionChecklist []string    `json:"required_action_checklist"`

	EventSequence      int  `json:"event_sequence"`
	LastEventDuplicate bool `json:"last_event_duplicate"`
}

// TaskKey builds the canonical follow-up key for a pull request.
func TaskKey(repo string, number int) string {
	return repo + "#" + strconv.Itoa(number)
}

// Normalize backfills fields absent from records written by older
// versions so the rest of the code can rely on their presence.
func (t *FollowupTask) Normalize(key string) {
	if t.ID == "" {
		t.ID = key
	}
	if t.Repo == "" {
		if repo, _, found := strings.Cut(key, "#"); found {
			t.Repo = repo
		}
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if t.Status != StatusClosed {
		// Only closed tasks carry a close timestamp.
		t.ClosedAt = nil
	}
	if t.CommentPermalinks == nil {
		t.CommentPermalinks = []string{}
	}
	if t.Events == nil {
		t.Events = []TaskEvent{}
	}
	if t.Labels == nil {
		t.Labels = []string{}
	}
	if len(t.RequiredActionChecklist) == 0 {
		t.RequiredActionChecklist = append([]string(nil), RequiredActionChecklist...)
	}
}

// HasLabel reports whether the last observed label set contains name,
// case-insensitively.
func (t *FollowupTask) HasLabel(name string) bool {
	for _, l := range t.Labels {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}
