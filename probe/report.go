// Copyright 2023 The MQProbe Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package probe

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gsalomao/mqprobe/bootstrap"
	"github.com/gsalomao/mqprobe/mqtt"
)

// Kinds of the MQTT handshake errors.
const (
	KindMQTTRefused         = "MQTTRefused"
	KindMQTTTimeout         = "MQTTTimeout"
	KindMQTTInvalidOptions  = "MQTTInvalidOptions"
	KindMQTTHandshakeFailed = "MQTTHandshakeFailed"
)

// Report describes the outcome of a probe.
type Report struct {
	AttemptID   string      `json:"attempt_id"`
	Broker      string      `json:"broker"`
	State       string      `json:"state"`
	Error       string      `json:"error,omitempty"`
	ErrorKind   string      `json:"error_kind,omitempty"`
	Insecure    bool        `json:"insecure"`
	TLSVersion  string      `json:"tls_version,omitempty"`
	CipherSuite string      `json:"cipher_suite,omitempty"`
	PeerSubject string      `json:"peer_subject,omitempty"`
	MQTT        *MQTTReport `json:"mqtt,omitempty"`
	DurationMs  float64     `json:"duration_ms"`
}

// MQTTReport describes the outcome of the MQTT handshake.
type MQTTReport struct {
	ClientID       string `json:"client_id,omitempty"`
	ReturnCode     *int   `json:"return_code,omitempty"`
	SessionPresent bool   `json:"session_present"`
}

// Established indicates whether the TLS connection was established.
func (r Report) Established() bool {
	return r.State == bootstrap.StateEstablished.String()
}

// WriteText writes the report in a human-readable format.
func (r Report) WriteText(w io.Writer) error {
	lines := []string{
		fmt.Sprintf("Attempt:      %s", r.AttemptID),
		fmt.Sprintf("Broker:       %s", r.Broker),
		fmt.Sprintf("State:        %s", r.State),
	}

	if r.Established() {
		lines = append(lines,
			fmt.Sprintf("TLS version:  %s", r.TLSVersion),
			fmt.Sprintf("Cipher suite: %s", r.CipherSuite),
			fmt.Sprintf("Peer subject: %s", r.PeerSubject),
		)
	}
	if r.Insecure {
		lines = append(lines,
			"WARNING:      broker certificate NOT verified (insecure mode)")
	}
	if r.MQTT != nil {
		lines = append(lines, fmt.Sprintf("MQTT client:  %s", r.MQTT.ClientID))
		if r.MQTT.ReturnCode != nil {
			lines = append(lines,
				fmt.Sprintf("MQTT CONNACK: 0x%02X", *r.MQTT.ReturnCode))
		}
	}
	if r.Error != "" {
		lines = append(lines, fmt.Sprintf("Error:        [%s] %s", r.ErrorKind,
			r.Error))
	}
	lines = append(lines, fmt.Sprintf("Duration:     %.3fms", r.DurationMs))

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) setConnection(conn *bootstrap.Connection) {
	st := conn.ConnectionState()
	r.TLSVersion = tls.VersionName(st.Version)
	r.CipherSuite = tls.CipherSuiteName(st.CipherSuite)
	r.PeerSubject = conn.PeerSubject()
	r.Insecure = conn.Insecure()
}

func (r *Report) setError(err error) {
	r.Error = err.Error()
	r.ErrorKind = KindOf(err)
}

func (r *Report) setDuration(d time.Duration) {
	r.DurationMs = float64(d.Microseconds()) / 1000
}

// KindOf returns the kind name of a bootstrap or MQTT handshake error. It
// returns an empty string if err is nil.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	if k := bootstrap.KindOf(err); k != "" {
		return k
	}

	var refused *mqtt.RefusedError
	switch {
	case errors.As(err, &refused):
		return KindMQTTRefused
	case errors.Is(err, mqtt.ErrHandshakeTimeout):
		return KindMQTTTimeout
	case errors.Is(err, mqtt.ErrInvalidOptions):
		return KindMQTTInvalidOptions
	default:
		return KindMQTTHandshakeFailed
	}
}
