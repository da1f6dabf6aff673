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

// Package notify posts operator alerts to a chat webhook. The ingress
// monitor uses it next to the GitHub issue comment so failures surface in
// chat as well.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const postTimeout = 10 * time.Second

// Client posts markdown messages to a chat webhook URL.
type Client struct {
	logger *logrus.Entry
	url    string
	client *http.Client
	fake   bool
}

type chatMsg struct {
	MsgType  string   `json:"msgtype"`
	Markdown markdown `json:"markdown"`
}

type markdown struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// NewClient creates a client posting to the given webhook URL.
func NewClient(url string) *Client {
	return &Client{
		logger: logrus.WithField("client", "notify"),
		url:    url,
		client: &http.Client{Timeout: postTimeout},
	}
}

// NewFakeClient returns a client that takes no actions.
func NewFakeClient() *Client {
	return &Client{fake: true}
}

// WriteMessage posts one markdown alert.
func (c *Client) WriteMessage(ctx context.Context, title, text string) error {
	if c.fake {
		return nil
	}
	c.logger.WithField("title", title).Debug("Posting chat alert.")

	msg := chatMsg{
		MsgType:  "markdown",
		Markdown: markdown{Title: title, Text: text},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(msg); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting alert: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	apiResponse := struct {
		Code  int    `json:"errcode"`
		Error string `json:"errmsg"`
	}{}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return fmt.Errorf("API returned invalid JSON (%q): %w", string(body), err)
	}
	if resp.StatusCode != http.StatusOK || apiResponse.Code != 0 && apiResponse.Error != "ok" {
		return fmt.Errorf("alert request failed: %s", apiResponse.Error)
	}
	return nil
}
