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

// The dispatcher receives GitHub webhooks, routes issues and pull request
// feedback to roles, and hands work to the dispatch bridge.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/openclaw/issue-dispatcher/pkg/dispatch"
	"github.com/openclaw/issue-dispatcher/pkg/flagutil"
	"github.com/openclaw/issue-dispatcher/pkg/followup"
	"github.com/openclaw/issue-dispatcher/pkg/routing"
	"github.com/openclaw/issue-dispatcher/pkg/server"
	"github.com/openclaw/issue-dispatcher/pkg/state"
)

type options struct {
	host        string
	port        int
	metricsPort int

	stateDir    string
	routingPath string
	logFile     string

	webhookSecretPath string

	hookTemplate string
	hookTimeout  time.Duration

	autoExec           bool
	autoExecOpenedOnly bool
	triageForceLabel   string

	securityReviewer string
	overrideLabel    string
	securityLabels   flagutil.Strings
	securityPaths    flagutil.Strings

	github flagutil.GitHubOptions
	ssl    flagutil.SSLOptions

	logLevel string
}

func parseOptions() options {
	var o options
	if err := o.parseArgs(flag.CommandLine, os.Args[1:]); err != nil {
		logrus.Fatalf("Invalid flags: %v", err)
	}
	return o
}

func (o *options) parseArgs(flags *flag.FlagSet, args []string) error {
	o.securityLabels = flagutil.NewStrings(followup.DefaultSecurityLabels...)
	flags.StringVar(&o.host, "host", envOr("DISPATCHER_HOST", "127.0.0.1"), "Address to bind.")
	flags.IntVar(&o.port, "port", envIntOr("DISPATCHER_PORT", 8787), "Port to bind.")
	flags.IntVar(&o.metricsPort, "metrics-port", 9090, "Port for Prometheus metrics; 0 disables.")
	flags.StringVar(&o.stateDir, "state-dir", envOr("DISPATCHER_STATE_DIR", "state"), "Directory holding the persistent JSON state files.")
	flags.StringVar(&o.routingPath, "routing-config", envOr("DISPATCHER_ROUTING_FILE", "routing.yaml"), "Path to the routing rule-set.")
	flags.StringVar(&o.logFile, "log-file", "", "Also append logs to this file. Defaults to issue-dispatcher.log under --state-dir.")
	flags.StringVar(&o.webhookSecretPath, "hmac-secret-file", "", "Path to the file containing the webhook HMAC secret. Falls back to $GITHUB_WEBHOOK_SECRET.")
	flags.StringVar(&o.hookTemplate, "hook-template", envOr("DISPATCH_HOOK_CMD", dispatch.DefaultHookTemplate), "Bridge command template.")
	flags.DurationVar(&o.hookTimeout, "hook-timeout", envDurationOr("DISPATCH_HOOK_TIMEOUT_SEC", dispatch.DefaultTimeout), "Wall-clock timeout for one bridge invocation.")
	flags.BoolVar(&o.autoExec, "auto-exec", true, "Execute the hook for confidently routed issues.")
	flags.BoolVar(&o.autoExecOpenedOnly, "auto-exec-opened-only", true, "Restrict issue auto-execution to the opened action.")
	flags.StringVar(&o.triageForceLabel, "triage-force-label", server.DefaultTriageForceLabel, "Issue label forcing the default triage route.")
	flags.StringVar(&o.securityReviewer, "security-reviewer", followup.DefaultSecurityReviewer, "Login whose approval closes security-flagged follow-ups.")
	flags.StringVar(&o.overrideLabel, "security-override-label", followup.DefaultOverrideLabel, "PR label bypassing the security reviewer gate.")
	flags.Var(&o.securityLabels, "security-label", "PR label marking a follow-up as requiring security review. Repeatable.")
	flags.Var(&o.securityPaths, "security-path", "Changed-path prefix marking a follow-up as requiring security review. Repeatable.")
	o.github.AddFlags(flags)
	o.ssl.AddFlags(flags)
	flags.StringVar(&o.logLevel, "log-level", logrus.InfoLevel.String(), fmt.Sprintf("Logging level, one of %v", logrus.AllLevels))
	if err := flags.Parse(args); err != nil {
		return err
	}
	return o.validate()
}

func (o *options) validate() error {
	if o.port <= 0 || o.port > 65535 {
		return fmt.Errorf("--port %d is out of range", o.port)
	}
	if _, err := logrus.ParseLevel(o.logLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	if err := o.github.Validate(); err != nil {
		return err
	}
	return o.ssl.Validate()
}

func (o *options) webhookSecret() (func() []byte, error) {
	if o.webhookSecretPath != "" {
		raw, err := os.ReadFile(o.webhookSecretPath)
		if err != nil {
			return nil, fmt.Errorf("reading --hmac-secret-file: %w", err)
		}
		secret := bytes.TrimSpace(raw)
		return func() []byte { return secret }, nil
	}
	secret := []byte(os.Getenv("GITHUB_WEBHOOK_SECRET"))
	return func() []byte { return secret }, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}

func setupLogging(o *options) {
	level, _ := logrus.ParseLevel(o.logLevel)
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	path := o.logFile
	if path == "" {
		path = filepath.Join(o.stateDir, "issue-dispatcher.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logrus.WithError(err).Warn("Creating log directory failed; logging to stderr only.")
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logrus.WithError(err).Warn("Opening log file failed; logging to stderr only.")
		return
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
}

func main() {
	o := parseOptions()
	setupLogging(&o)
	log := logrus.WithField("component", "dispatcher")

	secret, err := o.webhookSecret()
	if err != nil {
		log.WithError(err).Fatal("Resolving webhook secret failed.")
	}
	if len(secret()) == 0 {
		log.Warn("Webhook secret is empty; all signature checks will fail.")
	}

	template, err := dispatch.Parse(o.hookTemplate)
	if err != nil {
		log.WithError(err).Fatal("Invalid hook template.")
	}

	ghc, err := o.github.Client()
	if err != nil {
		log.WithError(err).Fatal("Constructing GitHub client failed.")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent := routing.NewAgent(o.routingPath)
	if err := agent.Start(ctx); err != nil {
		log.WithError(err).Fatal("Loading routing config failed.")
	}

	store := state.New(o.stateDir)
	store.Load()

	manager := followup.NewManager(store, ghc, followup.Options{
		SecurityReviewer: o.securityReviewer,
		OverrideLabel:    o.overrideLabel,
		SecurityLabels:   o.securityLabels.Strings(),
		SecurityPaths:    o.securityPaths.Strings(),
	})
	runner := dispatch.NewRunner(o.hookTimeout)

	srv := server.New(secret, ghc, agent, store, manager, runner, template, server.Options{
		AutoExec:           o.autoExec,
		AutoExecOpenedOnly: o.autoExecOpenedOnly,
		TriageForceLabel:   o.triageForceLabel,
	})

	if o.metricsPort > 0 {
		go func() {
			addr := net.JoinHostPort(o.host, strconv.Itoa(o.metricsPort))
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("Metrics server failed.")
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(o.host, strconv.Itoa(o.port)),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		log.Info("Shutting down.")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", httpServer.Addr).Info("Dispatcher listening.")
	if o.ssl.Enabled() {
		err = httpServer.ListenAndServeTLS(o.ssl.CertFile, o.ssl.KeyFile)
	} else {
		err = httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("Server failed.")
	}
}
