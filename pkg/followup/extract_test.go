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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const reviewPayload = `{
  "action": "submitted",
  "review": {"id": 42, "state": "changes_requested", "body": "needs work",
             "html_url": "https://github.com/openclaw/hoopsmania/pull/7#pullrequestreview-42",
             "submitted_at": "2026-02-26T00:17:54Z", "user": {"login": "locktrace"}},
  "pull_request": {"number": 7, "title": "fix auth", "body": "rotates tokens",
                   "html_url": "https://github.com/openclaw/hoopsmania/pull/7",
                   "labels": [{"name": "security"}]},
  "repository": {"full_name": "openclaw/hoopsmania"},
  "sender": {"login": "locktrace"}
}`

const reviewCommentPayload = `{
  "action": "created",
  "comment": {"id": 77, "body": "typo here",
              "html_url": "https://github.com/openclaw/hoopsmania/pull/7#discussion_r77",
              "created_at": "2026-02-26T00:18:00Z", "updated_at": "", "user": {"login": "docdrip"}},
  "pull_request": {"number": 7, "title": "fix auth",
                   "html_url": "https://github.com/openclaw/hoopsmania/pull/7"},
  "repository": {"full_name": "openclaw/hoopsmania"},
  "sender": {"login": "docdrip"}
}`

const prCommentPayload = `{
  "action": "created",
  "issue": {"number": 7, "title": "fix auth",
            "html_url": "https://github.com/openclaw/hoopsmania/pull/7",
            "pull_request": {"url": "https://api.github.com/repos/openclaw/hoopsmania/pulls/7"}},
  "comment": {"id": 88, "body": "lgtm once green",
              "html_url": "https://github.com/openclaw/hoopsmania/pull/7#issuecomment-88",
              "created_at": "2026-02-26T00:19:00Z", "updated_at": "2026-02-26T00:19:30Z",
              "user": {"login": "pipewire"}},
  "repository": {"full_name": "openclaw/hoopsmania"},
  "sender": {"login": "pipewire"}
}`

const plainIssueCommentPayload = `{
  "action": "created",
  "issue": {"number": 74, "title": "flaky test"},
  "comment": {"id": 99, "body": "seen again"},
  "repository": {"full_name": "openclaw/hoopsmania"},
  "sender": {"login": "pipewire"}
}`

func TestParseFeedbackReview(t *testing.T) {
	t.Parallel()
	fb, err := ParseFeedback("pull_request_review", []byte(reviewPayload), "d-1")
	require.NoError(t, err)
	require.Equal(t, "review", fb.Source)
	require.Equal(t, "submitted", fb.Action)
	require.Equal(t, "openclaw/hoopsmania", fb.Repo)
	require.Equal(t, 7, fb.PRNumber)
	require.Equal(t, int64(42), fb.CommentID)
	require.Equal(t, "d-1", fb.Delivery)
	require.Equal(t, "2026-02-26T00:17:54Z", fb.Timestamp)
	require.Equal(t, "locktrace", fb.ReviewerLogin)
	require.Equal(t, []string{"security"}, fb.Labels)
}

func TestParseFeedbackReviewComment(t *testing.T) {
	t.Parallel()
	fb, err := ParseFeedback("pull_request_review_comment", []byte(reviewCommentPayload), "d-2")
	require.NoError(t, err)
	require.Equal(t, "review_comment", fb.Source)
	require.Equal(t, int64(77), fb.CommentID)
	// Empty updated_at falls back to created_at.
	require.Equal(t, "2026-02-26T00:18:00Z", fb.Timestamp)
}

func TestParseFeedbackPRConversationComment(t *testing.T) {
	t.Parallel()
	fb, err := ParseFeedback("issue_comment", []byte(prCommentPayload), "d-3")
	require.NoError(t, err)
	require.Equal(t, "issue_comment", fb.Source)
	require.Equal(t, 7, fb.PRNumber)
	require.Equal(t, "2026-02-26T00:19:30Z", fb.Timestamp)
	require.Equal(t, "https://github.com/openclaw/hoopsmania/pull/7", fb.PRURL)
}

func TestParseFeedbackRejectsNonPRComment(t *testing.T) {
	t.Parallel()
	_, err := ParseFeedback("issue_comment", []byte(plainIssueCommentPayload), "d-4")
	require.True(t, errors.Is(err, ErrNotPRFeedback))
}

func TestParseFeedbackRejectsUnknownEvent(t *testing.T) {
	t.Parallel()
	_, err := ParseFeedback("push", []byte(`{}`), "d-5")
	require.True(t, errors.Is(err, ErrNotPRFeedback))
}

func TestParseFeedbackMalformedPayload(t *testing.T) {
	t.Parallel()
	_, err := ParseFeedback("pull_request_review", []byte("{broken"), "d-6")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotPRFeedback))
}
