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

// verify-webhook-events checks that the repository webhook subscribes to
// every event the dispatcher consumes, and optionally patches it.
//
// Exit codes: 0 all present (or patched), 1 events missing, 2 usage or
// API error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/openclaw/issue-dispatcher/pkg/flagutil"
	"github.com/openclaw/issue-dispatcher/pkg/github"
)

type options struct {
	repo        string
	hookID      int64
	urlContains string
	apply       bool

	github flagutil.GitHubOptions
}

func parseOptions() options {
	var o options
	if err := o.parseArgs(flag.CommandLine, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	return o
}

func (o *options) parseArgs(flags *flag.FlagSet, args []string) error {
	flags.StringVar(&o.repo, "repo", "", "Repository as owner/name. Required.")
	flags.Int64Var(&o.hookID, "hook-id", 0, "Webhook id to check/update.")
	flags.StringVar(&o.urlContains, "url-contains", "", "Find the hook by URL substring.")
	flags.BoolVar(&o.apply, "apply", false, "Patch the webhook to include the required events.")
	o.github.AddFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if o.repo == "" || !strings.Contains(o.repo, "/") {
		return fmt.Errorf("--repo must be owner/name")
	}
	return o.github.Validate()
}

func selectHook(hooks []github.Hook, hookID int64, urlContains string) *github.Hook {
	switch {
	case hookID != 0:
		for i := range hooks {
			if hooks[i].ID == hookID {
				return &hooks[i]
			}
		}
	case urlContains != "":
		for i := range hooks {
			if strings.Contains(hooks[i].Config.URL, urlContains) {
				return &hooks[i]
			}
		}
	case len(hooks) == 1:
		return &hooks[0]
	}
	return nil
}

func main() {
	o := parseOptions()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ghc, err := o.github.Client()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	hooks, err := ghc.ListHooks(ctx, o.repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: listing hooks: %v\n", err)
		os.Exit(2)
	}
	hook := selectHook(hooks, o.hookID, o.urlContains)
	if hook == nil {
		fmt.Fprintln(os.Stderr, "error: could not uniquely select webhook; pass --hook-id or --url-contains")
		os.Exit(2)
	}

	current := sets.New[string](hook.Events...)
	missing := sets.List(github.DispatchEvents.Difference(current))
	sort.Strings(missing)

	fmt.Printf("hook_id=%d\n", hook.ID)
	fmt.Printf("url=%s\n", hook.Config.URL)
	fmt.Printf("current_events=%v\n", sets.List(current))

	if len(missing) == 0 {
		fmt.Println("status=ok all required events present")
		return
	}

	fmt.Printf("status=missing required_events=%v\n", missing)
	if !o.apply {
		os.Exit(1)
	}

	patched := sets.List(current.Union(github.DispatchEvents))
	sort.Strings(patched)
	if err := ghc.EditHookEvents(ctx, o.repo, hook.ID, patched); err != nil {
		fmt.Fprintf(os.Stderr, "error: patch failed: %v\n", err)
		os.Exit(2)
	}
	fmt.Printf("status=patched events=%v\n", patched)
}
