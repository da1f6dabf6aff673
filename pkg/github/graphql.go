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

package github

import (
	"context"
	"fmt"
	"strings"

	githubql "github.com/shurcooL/githubv4"
)

// AllThreadsResolved reports whether every review thread on the pull
// request is resolved. A nil result means the query failed and the answer
// is unknown.
func (c *Client) AllThreadsResolved(ctx context.Context, repo string, number int) *bool {
	owner, name := SplitRepo(repo)
	var query struct {
		Repository struct {
			PullRequest struct {
				ReviewThreads struct {
					Nodes []struct {
						IsResolved githubql.Boolean
					}
				} `graphql:"reviewThreads(first: 100)"`
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubql.String(owner),
		"name":   githubql.String(name),
		"number": githubql.Int(number),
	}
	if err := c.gql.Query(ctx, &query, vars); err != nil {
		c.logger.WithError(err).WithField("repo", repo).Warn("Review thread query failed.")
		return nil
	}
	resolved := true
	for _, node := range query.Repository.PullRequest.ReviewThreads.Nodes {
		if !bool(node.IsResolved) {
			resolved = false
			break
		}
	}
	return &resolved
}

// ChecksGreen reports whether the status check rollup of the last commit on
// the pull request is successful, falling back to the REST combined status
// when the rollup is unavailable. A nil result means both sources failed.
func (c *Client) ChecksGreen(ctx context.Context, repo string, number int) *bool {
	owner, name := SplitRepo(repo)
	var query struct {
		Repository struct {
			PullRequest struct {
				Commits struct {
					Nodes []struct {
						Commit struct {
							Oid               githubql.String
							StatusCheckRollup *struct {
								State githubql.String
							}
						}
					}
				} `graphql:"commits(last: 1)"`
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubql.String(owner),
		"name":   githubql.String(name),
		"number": githubql.Int(number),
	}
	if err := c.gql.Query(ctx, &query, vars); err == nil {
		nodes := query.Repository.PullRequest.Commits.Nodes
		if len(nodes) > 0 && nodes[0].Commit.StatusCheckRollup != nil {
			green := string(nodes[0].Commit.StatusCheckRollup.State) == "SUCCESS"
			return &green
		}
	} else {
		c.logger.WithError(err).WithField("repo", repo).Warn("Status rollup query failed.")
	}
	return c.combinedStatusGreen(ctx, repo, number)
}

func (c *Client) combinedStatusGreen(ctx context.Context, repo string, number int) *bool {
	var pr struct {
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	}
	if err := c.GetJSON(ctx, fmt.Sprintf("/repos/%s/pulls/%d", repo, number), &pr); err != nil || pr.Head.SHA == "" {
		return nil
	}
	var status CombinedStatus
	if err := c.GetJSON(ctx, fmt.Sprintf("/repos/%s/commits/%s/status", repo, pr.Head.SHA), &status); err != nil {
		return nil
	}
	green := strings.EqualFold(status.State, "success")
	return &green
}

// LatestReviewStateBy returns the state of the most recent pull request
// review authored by login, one of APPROVED, CHANGES_REQUESTED or
// COMMENTED, or "" when that reviewer has not reviewed or the query failed.
func (c *Client) LatestReviewStateBy(ctx context.Context, repo string, number int, login string) string {
	owner, name := SplitRepo(repo)
	var query struct {
		Repository struct {
			PullRequest struct {
				Reviews struct {
					Nodes []struct {
						State  githubql.String
						Author struct {
							Login githubql.String
						}
					}
				} `graphql:"reviews(last: 50)"`
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubql.String(owner),
		"name":   githubql.String(name),
		"number": githubql.Int(number),
	}
	if err := c.gql.Query(ctx, &query, vars); err != nil {
		c.logger.WithError(err).WithField("repo", repo).Warn("Review state query failed.")
		return ""
	}
	// Nodes arrive oldest first; the last match wins.
	state := ""
	for _, node := range query.Repository.PullRequest.Reviews.Nodes {
		if strings.EqualFold(string(node.Author.Login), login) {
			state = string(node.State)
		}
	}
	return state
}
