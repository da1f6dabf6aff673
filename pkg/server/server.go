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

// Package server is the webhook intake: it validates deliveries,
// deduplicates them, routes issues and PR feedback, and drives the
// dispatch bridge.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/openclaw/issue-dispatcher/pkg/dispatch"
	"github.com/openclaw/issue-dispatcher/pkg/fingerprint"
	"github.com/openclaw/issue-dispatcher/pkg/followup"
	"github.com/openclaw/issue-dispatcher/pkg/github"
	"github.com/openclaw/issue-dispatcher/pkg/routing"
	"github.com/openclaw/issue-dispatcher/pkg/state"
)

// DefaultTriageForceLabel routes a labeled issue straight to the default
// triage role regardless of rule matches.
const DefaultTriageForceLabel = "force-triage"

// responseTail bounds the stdout/stderr excerpts echoed in responses and
// comments.
const responseTail = 1000

var (
	issueActions    = sets.New[string]("opened", "edited", "labeled", "reopened")
	feedbackActions = sets.New[string]("created", "edited", "submitted")
)

// commenter posts status comments; the concrete type is github.Client.
type commenter interface {
	CreateComment(ctx context.Context, repo string, number int, body string) error
}

// Options configure the receiver's dispatch behavior.
type Options struct {
	// AutoExec enables hook execution for confidently routed issues. When
	// false the receiver only routes and comments.
	AutoExec bool
	// AutoExecOpenedOnly restricts issue auto-execution to the "opened"
	// action.
	AutoExecOpenedOnly bool
	// TriageForceLabel overrides routing to the default role when present
	// on an issue.
	TriageForceLabel string
}

func (o *Options) setDefaults() {
	if o.TriageForceLabel == "" {
		o.TriageForceLabel = DefaultTriageForceLabel
	}
}

// Server handles webhook intake. One instance serves all deliveries;
// per-PR serialization happens in the follow-up manager.
type Server struct {
	log            *logrus.Entry
	tokenGenerator func() []byte

	ghc     commenter
	routing *routing.Agent
	store   *state.Store
	manager *followup.Manager
	runner  *dispatch.Runner

	template        *dispatch.Template
	defaultTemplate *dispatch.Template
	opts            Options
}

// New constructs the receiver. tokenGenerator returns the current webhook
// HMAC secret.
func New(tokenGenerator func() []byte, ghc commenter, agent *routing.Agent, store *state.Store, manager *followup.Manager, runner *dispatch.Runner, template *dispatch.Template, opts Options) *Server {
	opts.setDefaults()
	// The fallback template is a constant and must always parse.
	def, err := dispatch.Parse(dispatch.DefaultHookTemplate)
	if err != nil {
		panic(err)
	}
	return &Server{
		log:             logrus.WithField("component", "server"),
		tokenGenerator:  tokenGenerator,
		ghc:             ghc,
		routing:         agent,
		store:           store,
		manager:         manager,
		runner:          runner,
		template:        template,
		defaultTemplate: def,
		opts:            opts,
	}
}

// Router builds the HTTP surface: health, webhook intake and a JSON 404
// for everything else.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/github/webhook", s.handleWebhook).Methods(http.MethodPost)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusNotFound, map[string]interface{}{"ok": false, "error": "not found"})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func respond(w http.ResponseWriter, code int, payload map[string]interface{}) {
	recordResponse(code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func ignored(w http.ResponseWriter, reason string) {
	respond(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": reason})
}

// tail returns the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "reading body"})
		return
	}
	eventType := r.Header.Get(github.EventTypeHeader)
	delivery := r.Header.Get(github.DeliveryIDHeader)
	sig := r.Header.Get(github.SignatureHeader)

	webhookCounter.WithLabelValues(eventType).Inc()
	log := s.log.WithFields(logrus.Fields{"event-type": eventType, github.DeliveryIDHeader: delivery})

	if !github.DispatchEvents.Has(eventType) {
		ignored(w, fmt.Sprintf("event %s", eventType))
		return
	}
	if !github.ValidatePayload(body, sig, s.tokenGenerator()) {
		log.Warn("Rejected delivery with invalid signature.")
		respond(w, http.StatusUnauthorized, map[string]interface{}{"ok": false, "error": "bad signature"})
		return
	}

	if eventType == "issues" {
		s.handleIssue(r.Context(), w, log, body, delivery)
		return
	}
	s.handleFeedback(r.Context(), w, log, eventType, body, delivery)
}

func (s *Server) handleIssue(ctx context.Context, w http.ResponseWriter, log *logrus.Entry, body []byte, delivery string) {
	var ev github.IssueEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		respond(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "undecodable payload"})
		return
	}
	if !issueActions.Has(ev.Action) {
		ignored(w, fmt.Sprintf("action %s", ev.Action))
		return
	}
	repo := ev.Repo.FullName
	if repo == "" || ev.Issue.Number == 0 {
		respond(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "missing issue/repo"})
		return
	}

	if s.store.SeenDelivery(delivery) {
		ignored(w, "duplicate delivery")
		return
	}
	fp := fingerprint.Issue(repo, ev.Issue.Number, ev.Action, ev.Issue.UpdatedAt)
	if s.store.SeenFingerprint(fp) {
		ignored(w, "duplicate payload")
		return
	}

	cfg := s.routing.Config()
	role, confident, reason := routing.RouteIssue(&ev.Issue, cfg)
	if hasLabel(ev.Issue.Labels, s.opts.TriageForceLabel) {
		role = cfg.DefaultRole
		confident = false
		reason = fmt.Sprintf("triage forced by %q label", s.opts.TriageForceLabel)
	}
	role = routing.NormalizeRole(role, cfg, false)

	autoExec := s.opts.AutoExec && confident && (!s.opts.AutoExecOpenedOnly || ev.Action == "opened")
	log = log.WithFields(logrus.Fields{"repo": repo, "issue": ev.Issue.Number, "role": role})
	log.WithField("reason", reason).Info("Issue routed.")

	resp := map[string]interface{}{
		"ok":             true,
		"role":           role,
		"routing_reason": reason,
		"auto_executed":  autoExec,
	}
	outcome := "auto-execution skipped"
	if autoExec {
		cmd := s.template.Render(&dispatch.Fields{
			Role:        role,
			Repo:        repo,
			TaskKind:    "issue",
			TaskNumber:  strconv.Itoa(ev.Issue.Number),
			TaskTitle:   ev.Issue.Title,
			TaskURL:     ev.Issue.HTMLURL,
			ContextJSON: "{}",
		})
		res, err := s.runner.Run(ctx, cmd)
		if err != nil {
			respond(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": fmt.Sprintf("spawning hook: %v", err)})
			return
		}
		recordDispatch("issue", res.OK())
		resp["command"] = cmd
		resp["exit"] = res.ExitCode
		resp["stdout"] = tail(res.Stdout, responseTail)
		resp["stderr"] = tail(res.Stderr, responseTail)
		// Issue dispatch is best-effort per delivery: a failed hook is
		// reported but the delivery is still marked processed.
		if res.OK() {
			outcome = "dispatched"
		} else {
			outcome = fmt.Sprintf("dispatch failed (exit %d)", res.ExitCode)
		}
	}

	comment := fmt.Sprintf(
		"🤖 Issue router assigned this to **%s**.\n- reason: %s\n- action: `%s`\n- outcome: %s\n",
		role, reason, ev.Action, outcome,
	)
	if err := s.ghc.CreateComment(ctx, repo, ev.Issue.Number, comment); err != nil {
		log.WithError(err).Warn("Posting status comment failed.")
	}
	if err := s.store.MarkProcessed(delivery, fp); err != nil {
		respond(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "persisting state"})
		return
	}
	respond(w, http.StatusOK, resp)
}

func (s *Server) handleFeedback(ctx context.Context, w http.ResponseWriter, log *logrus.Entry, eventType string, body []byte, delivery string) {
	fb, err := followup.ParseFeedback(eventType, body, delivery)
	if err != nil {
		if errors.Is(err, followup.ErrNotPRFeedback) {
			ignored(w, "comment on a non-PR issue")
			return
		}
		respond(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "undecodable payload"})
		return
	}
	if !feedbackActions.Has(fb.Action) {
		ignored(w, fmt.Sprintf("action %s", fb.Action))
		return
	}
	if fb.Repo == "" || fb.PRNumber == 0 {
		respond(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "missing issue/repo"})
		return
	}

	if s.store.SeenDelivery(delivery) {
		ignored(w, "duplicate delivery")
		return
	}
	fp := fingerprint.Feedback(fb.Event, fb.Repo, fb.PRNumber, fb.Action, fb.Timestamp, fb.Permalink)
	if s.store.SeenFingerprint(fp) {
		ignored(w, "duplicate payload")
		return
	}

	cfg := s.routing.Config()
	task, isNew, err := s.manager.CreateOrUpdate(ctx, fb, cfg)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "updating follow-up"})
		return
	}
	log = log.WithFields(logrus.Fields{"task": task.ID, "role": task.Role, "new": isNew})

	taskContext := map[string]interface{}{
		"task_id":                   task.ID,
		"repo":                      task.Repo,
		"pr_number":                 task.PRNumber,
		"pr_url":                    task.PRURL,
		"comment_permalinks":        task.CommentPermalinks,
		"required_action_checklist": task.RequiredActionChecklist,
		"closure_gate":              s.manager.ClosureGates(&task),
	}
	contextJSON, err := json.Marshal(taskContext)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "encoding dispatch context"})
		return
	}

	// Legacy templates without task placeholders cannot express a PR
	// follow-up; use the built-in default for this dispatch.
	tmpl := s.template
	if !tmpl.HasPlaceholder("task_kind") {
		tmpl = s.defaultTemplate
	}
	cmd := tmpl.Render(&dispatch.Fields{
		Role:        task.Role,
		Repo:        task.Repo,
		TaskKind:    "pr-followup",
		TaskNumber:  strconv.Itoa(task.PRNumber),
		TaskTitle:   task.PRTitle,
		TaskURL:     task.PRURL,
		ContextJSON: string(contextJSON),
	})
	res, err := s.runner.Run(ctx, cmd)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": fmt.Sprintf("spawning hook: %v", err)})
		return
	}
	recordDispatch("pr-followup", res.OK())
	if !res.OK() {
		// Leave the delivery unprocessed so the forge can redeliver it.
		log.WithField("exit", res.ExitCode).Warn("Follow-up dispatch failed.")
		respond(w, http.StatusBadGateway, map[string]interface{}{
			"ok":     false,
			"error":  "dispatch failed",
			"exit":   res.ExitCode,
			"stdout": tail(res.Stdout, responseTail),
			"stderr": tail(res.Stderr, responseTail),
		})
		return
	}

	closed, closeReason, err := s.manager.AttemptClose(ctx, task.ID)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "persisting state"})
		return
	}

	closure := "open: " + closeReason
	if closed {
		closure = "closed: " + closeReason
	}
	comment := fmt.Sprintf(
		"🤖 Review follow-up **%s** routed to **%s** (event %d).\n- feedback from: @%s via %s\n- tracked comments: %d\n- closure: %s\n",
		task.ID, task.Role, task.EventSequence, fb.Sender, fb.Source, len(task.CommentPermalinks), closure,
	)
	if err := s.ghc.CreateComment(ctx, task.Repo, task.PRNumber, comment); err != nil {
		log.WithError(err).Warn("Posting status comment failed.")
	}
	if err := s.store.MarkProcessed(delivery, fp); err != nil {
		respond(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "persisting state"})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"ok": true,
		"followup": map[string]interface{}{
			"id":             task.ID,
			"role":           task.Role,
			"status":         task.Status,
			"event_sequence": task.EventSequence,
			"new":            isNew,
		},
		"closure": map[string]interface{}{
			"closed": closed,
			"reason": closeReason,
		},
		"command": cmd,
		"exit":    res.ExitCode,
		"stdout":  tail(res.Stdout, responseTail),
		"stderr":  tail(res.Stderr, responseTail),
	})
}

func hasLabel(labels []github.Label, name string) bool {
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}
