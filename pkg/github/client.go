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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	// DefaultAPIEndpoint is the public GitHub REST base URL.
	DefaultAPIEndpoint = "https://api.github.com"
	// DefaultGraphQLEndpoint is the public GitHub GraphQL URL.
	DefaultGraphQLEndpoint = "https://api.github.com/graphql"

	apiVersion     = "2022-11-28"
	restTimeout    = 15 * time.Second
	graphqlTimeout = 20 * time.Second
)

// Client is a thin GitHub client covering exactly the read and write paths
// the dispatcher needs. Read helpers return errors; the composed gate
// helpers map any failure to an "unknown" (nil) result so a forge outage
// keeps follow-ups open instead of crashing a delivery.
type Client struct {
	logger         *logrus.Entry
	base           string
	tokenGenerator func() []byte
	client         *http.Client
	gql            *githubv4.Client
}

// tokenSource adapts the rotating token generator to oauth2.
type tokenSource struct {
	gen func() []byte
}

func (t *tokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: string(t.gen())}, nil
}

// NewClient constructs a Client against the given REST and GraphQL
// endpoints. tokenGenerator returns the current bearer token.
func NewClient(apiEndpoint, graphqlEndpoint string, tokenGenerator func() []byte) *Client {
	if apiEndpoint == "" {
		apiEndpoint = DefaultAPIEndpoint
	}
	if graphqlEndpoint == "" {
		graphqlEndpoint = DefaultGraphQLEndpoint
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = restTimeout

	gqlHTTP := oauth2.NewClient(context.Background(), &tokenSource{gen: tokenGenerator})
	gqlHTTP.Timeout = graphqlTimeout

	return &Client{
		logger:         logrus.WithField("client", "github"),
		base:           strings.TrimSuffix(apiEndpoint, "/"),
		tokenGenerator: tokenGenerator,
		client:         rc.StandardClient(),
		gql:            githubv4.NewEnterpriseClient(graphqlEndpoint, gqlHTTP),
	}
}

// SplitRepo splits an "owner/name" repository identifier.
func SplitRepo(repo string) (string, string) {
	owner, name, _ := strings.Cut(repo, "/")
	return owner, name
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if token := c.tokenGenerator(); len(token) > 0 {
		req.Header.Set("Authorization", "Bearer "+string(token))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.client.Do(req)
}

// GetJSON issues a GET against the REST API and decodes the JSON response
// into out.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) write(ctx context.Context, method, path string, payload interface{}) error {
	resp, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// CreateComment posts a comment on an issue or pull request conversation.
func (c *Client) CreateComment(ctx context.Context, repo string, number int, body string) error {
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", repo, number)
	return c.write(ctx, http.MethodPost, path, map[string]string{"body": body})
}

// PullRequestFiles returns the changed file paths of a pull request, or nil
// when the listing fails.
func (c *Client) PullRequestFiles(ctx context.Context, repo string, number int) []string {
	var files []PullRequestFile
	path := fmt.Sprintf("/repos/%s/pulls/%d/files?per_page=100", repo, number)
	if err := c.GetJSON(ctx, path, &files); err != nil {
		c.logger.WithError(err).WithField("repo", repo).Warn("Listing pull request files failed.")
		return nil
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Filename)
	}
	return names
}

// ListHooks lists the webhooks configured on a repository.
func (c *Client) ListHooks(ctx context.Context, repo string) ([]Hook, error) {
	var hooks []Hook
	if err := c.GetJSON(ctx, fmt.Sprintf("/repos/%s/hooks", repo), &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}

// EditHookEvents patches a webhook's event subscriptions and activates it.
func (c *Client) EditHookEvents(ctx context.Context, repo string, hookID int64, events []string) error {
	path := fmt.Sprintf("/repos/%s/hooks/%d", repo, hookID)
	return c.write(ctx, http.MethodPatch, path, map[string]interface{}{
		"events": events,
		"active": true,
	})
}

// ListHookDeliveries returns the recent delivery log of a webhook.
func (c *Client) ListHookDeliveries(ctx context.Context, repo string, hookID int64) ([]HookDelivery, error) {
	var deliveries []HookDelivery
	path := fmt.Sprintf("/repos/%s/hooks/%d/deliveries?per_page=100", repo, hookID)
	if err := c.GetJSON(ctx, path, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

// RedeliverHookDelivery asks GitHub to redeliver one webhook delivery.
func (c *Client) RedeliverHookDelivery(ctx context.Context, repo string, hookID, deliveryID int64) error {
	path := fmt.Sprintf("/repos/%s/hooks/%d/deliveries/%d/attempts", repo, hookID, deliveryID)
	return c.write(ctx, http.MethodPost, path, struct{}{})
}
