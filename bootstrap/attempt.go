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

package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/gsalomao/mqprobe/logger"
	"github.com/rs/xid"
)

// State represents the state of a connection attempt.
type State int

const (
	// StateUnconfigured is the initial state of an attempt.
	StateUnconfigured State = iota

	// StateConfigured indicates that the TLS context has been created.
	StateConfigured

	// StateConnecting indicates that the connection is in progress.
	StateConnecting

	// StateEstablished indicates that the TLS connection is established.
	StateEstablished

	// StateFailed indicates that the attempt failed.
	StateFailed
)

var stateNames = map[State]string{
	StateUnconfigured: "Unconfigured",
	StateConfigured:   "Configured",
	StateConnecting:   "Connecting",
	StateEstablished:  "Established",
	StateFailed:       "Failed",
}

// String returns the name of the state.
func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "Unknown"
}

// OptionsFn represents a function which sets an option in the Attempt.
type OptionsFn func(a *Attempt)

// WithLogger sets the given Logger into the Attempt.
func WithLogger(log *logger.Logger) OptionsFn {
	return func(a *Attempt) {
		a.log = log
	}
}

// WithMetrics sets the given Metrics into the Attempt.
func WithMetrics(m *Metrics) OptionsFn {
	return func(a *Attempt) {
		a.metrics = m
	}
}

// Attempt represents a single connection attempt with the broker. It moves
// from Unconfigured to Configured and Connecting, ending either Established or
// Failed. A terminal state never changes: a new attempt requires a new
// instance.
type Attempt struct {
	id      xid.ID
	conf    ConnectionConfig
	tlsCtx  TLSContext
	log     *logger.Logger
	metrics *Metrics
	mtx     sync.Mutex
	state   State
	err     error
}

// NewAttempt creates an Attempt for the given configuration.
func NewAttempt(c ConnectionConfig, opts ...OptionsFn) *Attempt {
	a := &Attempt{
		id:    xid.New(),
		conf:  c,
		state: StateUnconfigured,
	}

	for _, fn := range opts {
		fn(a)
	}

	if a.log == nil {
		nop := logger.Nop()
		a.log = &nop
	}

	return a
}

// ID returns the unique identifier of the attempt.
func (a *Attempt) ID() string {
	return a.id.String()
}

// State returns the current state of the attempt.
func (a *Attempt) State() State {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.state
}

// Err returns the error which made the attempt fail, if any.
func (a *Attempt) Err() error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.err
}

// Configure creates the TLS context of the attempt.
func (a *Attempt) Configure() error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if a.state != StateUnconfigured {
		return fmt.Errorf("%w: cannot configure when %s", ErrInvalidState,
			a.state)
	}

	tc, err := ConfigureTLS(a.conf)
	if err != nil {
		a.state = StateFailed
		a.err = err
		a.metrics.recordAttempt(KindOf(err), 0)

		a.log.Error().
			Str("AttemptID", a.ID()).
			Str("Kind", KindOf(err)).
			Msg("Invalid TLS configuration: " + err.Error())
		return err
	}

	a.tlsCtx = tc
	a.state = StateConfigured

	a.log.Debug().
		Str("AttemptID", a.ID()).
		Str("CAFile", a.conf.CAFile).
		Str("CADir", a.conf.CADir).
		Bool("MutualTLS", tc.MutualTLS()).
		Bool("VerifyPeer", tc.VerifyPeer()).
		Msg("TLS context configured")
	return nil
}

// Connect connects to the broker using the TLS context created by Configure.
// It blocks until the connection is established, fails or times out.
func (a *Attempt) Connect(ctx context.Context) (*Connection, error) {
	a.mtx.Lock()
	if a.state != StateConfigured {
		st := a.state
		a.mtx.Unlock()
		return nil, fmt.Errorf("%w: cannot connect when %s", ErrInvalidState, st)
	}
	a.state = StateConnecting
	a.mtx.Unlock()

	address := a.conf.Address()
	if !a.tlsCtx.VerifyPeer() {
		a.log.Warn().
			Str("AttemptID", a.ID()).
			Str("Broker", address).
			Msg("INSECURE: Broker certificate verification disabled")
	}

	a.log.Debug().
		Str("AttemptID", a.ID()).
		Str("Broker", address).
		Int("Timeout", a.conf.ConnectTimeout).
		Msg("Connecting to broker")

	start := time.Now()
	conn, err := Connect(ctx, a.tlsCtx, a.conf.BrokerHost, a.conf.BrokerPort,
		a.conf.ConnectTimeout)
	elapsed := time.Since(start)

	a.mtx.Lock()
	defer a.mtx.Unlock()

	if err != nil {
		a.state = StateFailed
		a.err = err
		a.metrics.recordAttempt(KindOf(err), elapsed)

		a.log.Warn().
			Str("AttemptID", a.ID()).
			Str("Broker", address).
			Str("Kind", KindOf(err)).
			Dur("Elapsed", elapsed).
			Msg("Failed to connect: " + err.Error())
		return nil, err
	}

	a.state = StateEstablished
	a.metrics.recordAttempt(resultEstablished, elapsed)
	if conn.Insecure() {
		a.metrics.recordInsecure()
	}

	st := conn.ConnectionState()
	a.log.Info().
		Str("AttemptID", a.ID()).
		Str("Broker", address).
		Str("TLSVersion", tls.VersionName(st.Version)).
		Str("CipherSuite", tls.CipherSuiteName(st.CipherSuite)).
		Bool("Insecure", conn.Insecure()).
		Dur("Elapsed", elapsed).
		Msg("TLS connection established")
	return conn, nil
}
