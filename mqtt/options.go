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

package mqtt

import (
	"fmt"
	"math"
	"time"

	"github.com/gsalomao/mqprobe/logger"
)

// MaxTimeout is the largest handshake timeout, in seconds. The wait for the
// CONNACK adds a grace period to it, which must still fit in a time.Duration.
const MaxTimeout = int((math.MaxInt64 - int64(waitGrace)) / int64(time.Second))

// Options holds the options of the MQTT handshake.
type Options struct {
	// The client identifier. When empty, an identifier is generated using the
	// ClientIDPrefix.
	ClientID string

	// Prefix of the generated client identifier.
	ClientIDPrefix string

	// Optional user name.
	Username string

	// Optional password. It requires the Username.
	Password string

	// The Keep Alive, in seconds, sent in the CONNECT packet.
	KeepAlive int

	// The MQTT protocol version: 3 (MQTT 3.1) or 4 (MQTT 3.1.1).
	ProtocolVersion int

	// Indicates whether the broker must discard any previous session.
	CleanSession bool

	// The amount of time, in seconds, to wait for the CONNACK packet.
	Timeout int

	// Topic of the Will Message. When empty, no Will Message is sent.
	WillTopic string

	// Payload of the Will Message. It requires the WillTopic.
	WillPayload string

	// QoS level (0, 1 or 2) of the Will Message.
	WillQoS int

	// Indicates whether the broker must retain the Will Message.
	WillRetain bool

	// The broker URL reported to the MQTT client. When empty, it's built from
	// the connection remote address.
	BrokerURL string
}

// DefaultOptions returns the default handshake options.
func DefaultOptions() Options {
	return Options{
		ClientIDPrefix:  "mqprobe-",
		KeepAlive:       30,
		ProtocolVersion: 4,
		CleanSession:    true,
		Timeout:         5,
	}
}

// Validate checks whether the options can be sent to the broker.
func (o Options) Validate() error {
	if o.ProtocolVersion != 3 && o.ProtocolVersion != 4 {
		return fmt.Errorf("%w: unsupported protocol version %d",
			ErrInvalidOptions, o.ProtocolVersion)
	}
	if o.Timeout <= 0 || o.Timeout > MaxTimeout {
		return fmt.Errorf("%w: timeout %d out of range (1-%d)",
			ErrInvalidOptions, o.Timeout, MaxTimeout)
	}
	if o.KeepAlive < 0 || o.KeepAlive > 65535 {
		return fmt.Errorf("%w: keep alive %d out of range (0-65535)",
			ErrInvalidOptions, o.KeepAlive)
	}
	if o.Password != "" && o.Username == "" {
		return fmt.Errorf("%w: password requires a user name",
			ErrInvalidOptions)
	}
	if o.WillTopic == "" && (o.WillPayload != "" || o.WillRetain) {
		return fmt.Errorf("%w: will message requires a topic",
			ErrInvalidOptions)
	}
	if o.WillQoS < 0 || o.WillQoS > 2 {
		return fmt.Errorf("%w: will QoS %d out of range (0-2)",
			ErrInvalidOptions, o.WillQoS)
	}
	if !o.CleanSession && o.ClientID == "" {
		return fmt.Errorf("%w: persistent session requires a client ID",
			ErrInvalidOptions)
	}

	return nil
}

// OptionsFn represents a function which sets an option in the Handshake.
type OptionsFn func(h *handshake)

// WithLogger sets the given Logger into the Handshake.
func WithLogger(log *logger.Logger) OptionsFn {
	return func(h *handshake) {
		h.log = log
	}
}

// WithMetrics sets the given Metrics into the Handshake.
func WithMetrics(m *Metrics) OptionsFn {
	return func(h *handshake) {
		h.metrics = m
	}
}
