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

package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteMessage(t *testing.T) {
	t.Parallel()
	var got chatMsg
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &got)
		io.WriteString(w, `{"errcode":0,"errmsg":"ok"}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	if err := c.WriteMessage(context.Background(), "alert", "5xx deliveries detected"); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	if got.MsgType != "markdown" || got.Markdown.Title != "alert" {
		t.Errorf("posted message = %+v", got)
	}
}

func TestWriteMessageAPIError(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"errcode":310000,"errmsg":"keyword not found"}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	if err := c.WriteMessage(context.Background(), "alert", "text"); err == nil {
		t.Fatal("expected error on non-zero errcode")
	}
}

func TestFakeClientTakesNoAction(t *testing.T) {
	t.Parallel()
	c := NewFakeClient()
	if err := c.WriteMessage(context.Background(), "alert", "text"); err != nil {
		t.Fatalf("fake client error: %v", err)
	}
}
