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

// replay-failed-deliveries asks the forge to redeliver recent failed
// webhook deliveries for the dispatcher's hook.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openclaw/issue-dispatcher/pkg/flagutil"
	"github.com/openclaw/issue-dispatcher/pkg/github"
	"github.com/openclaw/issue-dispatcher/pkg/replay"
)

type options struct {
	repo     string
	hookID   int64
	hookURL  string
	lookback time.Duration
	max      int

	github flagutil.GitHubOptions
}

func parseOptions() options {
	var o options
	if err := o.parseArgs(flag.CommandLine, os.Args[1:]); err != nil {
		logrus.Fatalf("Invalid flags: %v", err)
	}
	return o
}

func (o *options) parseArgs(flags *flag.FlagSet, args []string) error {
	flags.StringVar(&o.repo, "repo", "", "Repository as owner/name. Required.")
	flags.Int64Var(&o.hookID, "hook-id", 0, "Webhook id to replay. When unset the hook is located by --hook-url.")
	flags.StringVar(&o.hookURL, "hook-url", "/github/webhook", "Substring matched against hook URLs to locate the dispatcher's webhook.")
	flags.DurationVar(&o.lookback, "lookback", replay.DefaultLookback, "How far back to look for failed deliveries.")
	flags.IntVar(&o.max, "max", replay.DefaultMax, "Maximum deliveries to replay in one run.")
	o.github.AddFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if o.repo == "" || !strings.Contains(o.repo, "/") {
		return fmt.Errorf("--repo must be owner/name")
	}
	return o.github.Validate()
}

func findHook(ctx context.Context, c *github.Client, repo, urlPart string) (int64, error) {
	hooks, err := c.ListHooks(ctx, repo)
	if err != nil {
		return 0, err
	}
	for _, h := range hooks {
		if strings.Contains(h.Config.URL, urlPart) {
			return h.ID, nil
		}
	}
	return 0, fmt.Errorf("no hook on %s matches %q", repo, urlPart)
}

func main() {
	o := parseOptions()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("component", "replay")

	ghc, err := o.github.Client()
	if err != nil {
		log.WithError(err).Fatal("Constructing GitHub client failed.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	hookID := o.hookID
	if hookID == 0 {
		hookID, err = findHook(ctx, ghc, o.repo, o.hookURL)
		if err != nil {
			log.WithError(err).Fatal("Locating webhook failed.")
		}
	}

	sum, err := replay.Run(ctx, ghc, o.repo, hookID, o.lookback, o.max)
	if err != nil {
		log.WithError(err).Fatal("Replay failed.")
	}
	out, _ := json.Marshal(sum)
	fmt.Println(string(out))
	if len(sum.Failed) > 0 {
		os.Exit(1)
	}
}
