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

// Package fingerprint derives deterministic content hashes for webhook
// payloads. Fingerprints suppress logically-duplicate deliveries that
// arrive under distinct delivery ids.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Issue fingerprints an issues event by repo, number, action and the
// issue's update timestamp.
func Issue(repo string, number int, action, updatedAt string) string {
	return digest(fmt.Sprintf("issues:%s:%d:%s:%s", repo, number, action, updatedAt))
}

// Feedback fingerprints a PR-feedback event (review, review comment or
// issue comment on a PR) by event kind, repo, PR number, action, the
// feedback's timestamp and its permalink.
func Feedback(event, repo string, number int, action, timestamp, permalink string) string {
	return digest(fmt.Sprintf("%s:%s:%d:%s:%s:%s", event, repo, number, action, timestamp, permalink))
}
