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

package followup

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openclaw/issue-dispatcher/pkg/github"
)

// ErrNotPRFeedback marks payloads that are not pull-request feedback, such
// as issue_comment events on plain issues.
var ErrNotPRFeedback = errors.New("payload is not a pull-request feedback event")

// Feedback is the event-kind-neutral view of one piece of pull request
// feedback, extracted from a review, review comment or PR conversation
// comment webhook.
type Feedback struct {
	Event  string
	Action string
	Source string
	Sender string

	Repo     string
	PRNumber int
	PRTitle  string
	PRURL    string
	PRBody   string
	Labels   []string

	Permalink    string
	FeedbackBody string
	// Timestamp is the feedback's own time marker: a review's
	// submitted_at, or a comment's updated_at (created_at fallback).
	Timestamp string

	// Delivery and CommentID form the stable identity for duplicate
	// detection in the task event log.
	Delivery  string
	CommentID int64

	ReviewState   string
	ReviewerLogin string
}

// ParseFeedback extracts a Feedback from a webhook payload. The delivery
// id is threaded through for event-log identity. It returns
// ErrNotPRFeedback when the event kind carries no PR feedback.
func ParseFeedback(eventType string, payload []byte, delivery string) (*Feedback, error) {
	switch eventType {
	case "pull_request_review":
		var ev github.ReviewEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("parsing %s payload: %w", eventType, err)
		}
		reviewer := ev.Review.User.Login
		if reviewer == "" {
			reviewer = ev.Sender.Login
		}
		return &Feedback{
			Event:         eventType,
			Action:        ev.Action,
			Source:        "review",
			Sender:        ev.Sender.Login,
			Repo:          ev.Repo.FullName,
			PRNumber:      ev.PullRequest.Number,
			PRTitle:       ev.PullRequest.Title,
			PRURL:         ev.PullRequest.HTMLURL,
			PRBody:        ev.PullRequest.Body,
			Labels:        github.LabelNames(ev.PullRequest.Labels),
			Permalink:     ev.Review.HTMLURL,
			FeedbackBody:  ev.Review.Body,
			Timestamp:     ev.Review.SubmittedAt,
			Delivery:      delivery,
			CommentID:     ev.Review.ID,
			ReviewState:   ev.Review.State,
			ReviewerLogin: reviewer,
		}, nil
	case "pull_request_review_comment":
		var ev github.ReviewCommentEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("parsing %s payload: %w", eventType, err)
		}
		ts := ev.Comment.UpdatedAt
		if ts == "" {
			ts = ev.Comment.CreatedAt
		}
		return &Feedback{
			Event:        eventType,
			Action:       ev.Action,
			Source:       "review_comment",
			Sender:       ev.Sender.Login,
			Repo:         ev.Repo.FullName,
			PRNumber:     ev.PullRequest.Number,
			PRTitle:      ev.PullRequest.Title,
			PRURL:        ev.PullRequest.HTMLURL,
			PRBody:       ev.PullRequest.Body,
			Labels:       github.LabelNames(ev.PullRequest.Labels),
			Permalink:    ev.Comment.HTMLURL,
			FeedbackBody: ev.Comment.Body,
			Timestamp:    ts,
			Delivery:     delivery,
			CommentID:    ev.Comment.ID,
		}, nil
	case "issue_comment":
		var ev github.IssueCommentEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("parsing %s payload: %w", eventType, err)
		}
		if ev.Issue.PullRequest == nil {
			return nil, ErrNotPRFeedback
		}
		ts := ev.Comment.UpdatedAt
		if ts == "" {
			ts = ev.Comment.CreatedAt
		}
		return &Feedback{
			Event:        eventType,
			Action:       ev.Action,
			Source:       "issue_comment",
			Sender:       ev.Sender.Login,
			Repo:         ev.Repo.FullName,
			PRNumber:     ev.Issue.Number,
			PRTitle:      ev.Issue.Title,
			PRURL:        ev.Issue.HTMLURL,
			PRBody:       ev.Issue.Body,
			Labels:       github.LabelNames(ev.Issue.Labels),
			Permalink:    ev.Comment.HTMLURL,
			FeedbackBody: ev.Comment.Body,
			Timestamp:    ts,
			Delivery:     delivery,
			CommentID:    ev.Comment.ID,
		}, nil
	default:
		return nil, ErrNotPRFeedback
	}
}
