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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	// EventTypeHeader names the webhook event kind.
	EventTypeHeader = "X-GitHub-Event"
	// DeliveryIDHeader carries the unique id of a webhook transmission.
	DeliveryIDHeader = "X-GitHub-Delivery"
	// SignatureHeader carries the HMAC-SHA256 payload signature.
	SignatureHeader = "X-Hub-Signature-256"

	signaturePrefix = "sha256="
)

// DispatchEvents is the set of webhook events the dispatcher consumes.
// The replay tool filters failed deliveries against the same set, so
// extending it keeps intake and replay in agreement.
var DispatchEvents = sets.New[string](
	"issues",
	"issue_comment",
	"pull_request_review",
	"pull_request_review_comment",
)

// ValidatePayload reports whether sig is a valid HMAC-SHA256 signature of
// payload under key. The header form is "sha256=<hex digest>". An empty key
// or a malformed header never validates.
func ValidatePayload(payload []byte, sig string, key []byte) bool {
	if len(key) == 0 {
		return false
	}
	if !strings.HasPrefix(sig, signaturePrefix) {
		return false
	}
	sum, err := hex.DecodeString(strings.TrimPrefix(sig, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hmac.Equal(sum, mac.Sum(nil))
}
