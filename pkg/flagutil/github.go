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

package flagutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/openclaw/issue-dispatcher/pkg/github"
)

// GitHubOptions is the flag group shared by every binary that talks to the
// forge. The token comes from --github-token-path when set, otherwise the
// GITHUB_TOKEN environment variable.
type GitHubOptions struct {
	TokenPath       string
	APIEndpoint     string
	GraphQLEndpoint string
}

func (o *GitHubOptions) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.TokenPath, "github-token-path", "", "Path to the file containing the GitHub token. Falls back to $GITHUB_TOKEN.")
	fs.StringVar(&o.APIEndpoint, "github-endpoint", github.DefaultAPIEndpoint, "GitHub REST API base URL.")
	fs.StringVar(&o.GraphQLEndpoint, "github-graphql-endpoint", github.DefaultGraphQLEndpoint, "GitHub GraphQL API URL.")
}

func (o *GitHubOptions) Validate() error {
	if o.APIEndpoint == "" {
		return fmt.Errorf("--github-endpoint must not be empty")
	}
	return nil
}

// TokenGenerator resolves the configured token source to a generator. A
// missing token is not an error here; unauthenticated clients can still
// serve read-only test setups.
func (o *GitHubOptions) TokenGenerator() (func() []byte, error) {
	if o.TokenPath != "" {
		raw, err := os.ReadFile(o.TokenPath)
		if err != nil {
			return nil, fmt.Errorf("reading --github-token-path: %w", err)
		}
		token := bytes.TrimSpace(raw)
		return func() []byte { return token }, nil
	}
	token := []byte(os.Getenv("GITHUB_TOKEN"))
	return func() []byte { return token }, nil
}

// Client builds the GitHub client from the flag group.
func (o *GitHubOptions) Client() (*github.Client, error) {
	gen, err := o.TokenGenerator()
	if err != nil {
		return nil, err
	}
	return github.NewClient(o.APIEndpoint, o.GraphQLEndpoint, gen), nil
}
