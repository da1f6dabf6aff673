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

// Package github provides the thin forge surface the dispatcher needs:
// webhook signature validation, payload types for the events it consumes,
// and a small REST/GraphQL client.
package github

import "time"

// User is a GitHub account referenced by an event.
type User struct {
	Login string `json:"login"`
}

// Label is a repository label attached to an issue or pull request.
type Label struct {
	Name string `json:"name"`
}

// Repo identifies the repository an event belongs to.
type Repo struct {
	Owner    User   `json:"owner"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// Issue is the subset of the REST issue object the router inspects. For
// issue_comment events on pull requests, PullRequest is non-nil.
type Issue struct {
	Number      int           `json:"number"`
	Title       string        `json:"title"`
	Body        string        `json:"body"`
	HTMLURL     string        `json:"html_url"`
	Labels      []Label       `json:"labels"`
	UpdatedAt   string        `json:"updated_at"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request,omitempty"`
}

// PullRequest is the subset of the REST pull request object used for
// follow-up routing.
type PullRequest struct {
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	HTMLURL string  `json:"html_url"`
	Labels  []Label `json:"labels"`
}

// IssueComment is a comment on an issue or pull request conversation.
type IssueComment struct {
	ID        int64  `json:"id"`
	Body      string `json:"body"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	User      User   `json:"user"`
}

// Review is a pull request review submission.
type Review struct {
	ID          int64  `json:"id"`
	State       string `json:"state"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	SubmittedAt string `json:"submitted_at"`
	User        User   `json:"user"`
}

// ReviewComment is an inline comment on a pull request diff.
type ReviewComment struct {
	ID        int64  `json:"id"`
	Body      string `json:"body"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	User      User   `json:"user"`
}

// IssueEvent is the payload of an "issues" webhook.
type IssueEvent struct {
	Action string `json:"action"`
	Issue  Issue  `json:"issue"`
	Repo   Repo   `json:"repository"`
	Sender User   `json:"sender"`
}

// IssueCommentEvent is the payload of an "issue_comment" webhook.
type IssueCommentEvent struct {
	Action  string       `json:"action"`
	Issue   Issue        `json:"issue"`
	Comment IssueComment `json:"comment"`
	Repo    Repo         `json:"repository"`
	Sender  User         `json:"sender"`
}

// ReviewEvent is the payload of a "pull_request_review" webhook.
type ReviewEvent struct {
	Action      string      `json:"action"`
	PullRequest PullRequest `json:"pull_request"`
	Review      Review      `json:"review"`
	Repo        Repo        `json:"repository"`
	Sender      User        `json:"sender"`
}

// ReviewCommentEvent is the payload of a "pull_request_review_comment"
// webhook.
type ReviewCommentEvent struct {
	Action      string        `json:"action"`
	PullRequest PullRequest   `json:"pull_request"`
	Comment     ReviewComment `json:"comment"`
	Repo        Repo          `json:"repository"`
	Sender      User          `json:"sender"`
}

// PullRequestFile is one entry of the /pulls/N/files listing.
type PullRequestFile struct {
	Filename string `json:"filename"`
}

// Hook is a repository webhook configuration.
type Hook struct {
	ID     int64    `json:"id"`
	Events []string `json:"events"`
	Active bool     `json:"active"`
	Config struct {
		URL string `json:"url"`
	} `json:"config"`
}

// HookDelivery is one entry of the webhook delivery log.
type HookDelivery struct {
	ID          int64     `json:"id"`
	GUID        string    `json:"guid"`
	Event       string    `json:"event"`
	Action      string    `json:"action"`
	StatusCode  int       `json:"status_code"`
	Redelivery  bool      `json:"redelivery"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// CombinedStatus is the REST combined commit status, the fallback source
// for the checks gate when the GraphQL rollup is unavailable.
type CombinedStatus struct {
	State string `json:"state"`
	SHA   string `json:"sha"`
}

// LabelNames flattens labels to their names.
func LabelNames(labels []Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.Name != "" {
			names = append(names, l.Name)
		}
	}
	return names
}
