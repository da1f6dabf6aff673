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

package flagutil

import (
	"errors"
	"flag"
)

// SSLOptions serve the webhook receiver over TLS when the forge cannot be
// pointed at a plaintext endpoint. Both files must be set together.
type SSLOptions struct {
	CertFile string
	KeyFile  string
}

func (o *SSLOptions) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.CertFile, "server-cert-file", "", "Location of the server cert file for serving TLS. Required together with --server-key-file.")
	fs.StringVar(&o.KeyFile, "server-key-file", "", "Location of the server key file for serving TLS. Required together with --server-cert-file.")
}

// Enabled reports whether TLS serving was requested.
func (o *SSLOptions) Enabled() bool {
	return o.CertFile != "" || o.KeyFile != ""
}

func (o *SSLOptions) Validate() error {
	if o.Enabled() {
		if o.CertFile == "" {
			return errors.New("flag --server-key-file was set but corresponding required flag --server-cert-file was not set")
		}
		if o.KeyFile == "" {
			return errors.New("flag --server-cert-file was set but corresponding required flag --server-key-file was not set")
		}
	}
	return nil
}
