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
	"testing"
)

func sign(payload, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestValidatePayload(t *testing.T) {
	t.Parallel()
	key := []byte("it's a secret")
	payload := []byte(`{"action":"opened"}`)
	good := sign(payload, key)

	testCases := []struct {
		name    string
		payload []byte
		sig     string
		key     []byte
		valid   bool
	}{
		{
			name:    "valid signature",
			payload: payload,
			sig:     good,
			key:     key,
			valid:   true,
		},
		{
			name:    "empty key never validates",
			payload: payload,
			sig:     good,
			key:     nil,
		},
		{
			name:    "missing prefix",
			payload: payload,
			sig:     good[len("sha256="):],
			key:     key,
		},
		{
			name:    "non-hex digest",
			payload: payload,
			sig:     "sha256=zzzz",
			key:     key,
		},
		{
			name:    "tampered payload",
			payload: []byte(`{"action":"opened" }`),
			sig:     good,
			key:     key,
		},
		{
			name:    "wrong key",
			payload: payload,
			sig:     good,
			key:     []byte("another secret"),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidatePayload(tc.payload, tc.sig, tc.key); got != tc.valid {
				t.Errorf("ValidatePayload() = %t, want %t", got, tc.valid)
			}
		})
	}
}

func TestValidatePayloadBitFlips(t *testing.T) {
	t.Parallel()
	key := []byte("0123456789abcdef")
	payload := []byte(`{"action":"submitted","review":{"id":42}}`)
	sig := sign(payload, key)

	for i := range payload {
		flipped := append([]byte(nil), payload...)
		flipped[i] ^= 0x01
		if ValidatePayload(flipped, sig, key) {
			t.Fatalf("bit flip at payload byte %d still validated", i)
		}
	}
	digest := sig[len("sha256="):]
	for i := range digest {
		c := digest[i]
		repl := byte('0')
		if c == '0' {
			repl = '1'
		}
		mutated := "sha256=" + digest[:i] + string(repl) + digest[i+1:]
		if ValidatePayload(payload, mutated, key) {
			t.Fatalf("mutated signature nibble %d still validated", i)
		}
	}
}

func TestDispatchEvents(t *testing.T) {
	t.Parallel()
	for _, event := range []string{"issues", "issue_comment", "pull_request_review", "pull_request_review_comment"} {
		if !DispatchEvents.Has(event) {
			t.Errorf("DispatchEvents is missing %q", event)
		}
	}
	if DispatchEvents.Has("ping") {
		t.Error("DispatchEvents should not include ping")
	}
}
