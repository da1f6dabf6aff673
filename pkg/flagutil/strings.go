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

// Package flagutil contains shared flag types for the dispatcher binaries.
package flagutil

import (
	"flag"
	"strings"
)

// Strings is a repeatable string flag. Defaults set before parsing are
// replaced by the first explicit use of the flag.
type Strings struct {
	vals    []string
	beenSet bool
}

// NewStrings returns a Strings preloaded with defaults.
func NewStrings(defaults ...string) Strings {
	return Strings{vals: defaults}
}

// Strings returns the accumulated values.
func (s *Strings) Strings() []string {
	return s.vals
}

func (s *Strings) String() string {
	return strings.Join(s.vals, ",")
}

// Set records one flag occurrence, dropping defaults on the first call.
func (s *Strings) Set(value string) error {
	if !s.beenSet {
		s.beenSet = true
		s.vals = nil
	}
	s.vals = append(s.vals, value)
	return nil
}

var _ flag.Value = &Strings{}
