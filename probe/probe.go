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

// Package probe runs a connection attempt end to end and reports its outcome.
package probe

import (
	"context"
	"errors"
	"time"

	"github.com/gsalomao/mqprobe/bootstrap"
	"github.com/gsalomao/mqprobe/logger"
	"github.com/gsalomao/mqprobe/mqtt"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Options holds the options of a single probe.
type Options struct {
	// Connection is the configuration of the TLS connection.
	Connection bootstrap.ConnectionConfig

	// MQTT indicates whether the MQTT handshake is performed once the TLS
	// connection is established.
	MQTT bool

	// MQTTOptions holds the options of the MQTT handshake.
	MQTTOptions mqtt.Options
}

// Metrics holds the collectors used by the Prober.
type Metrics struct {
	Bootstrap *bootstrap.Metrics
	MQTT      *mqtt.Metrics
}

// NewMetrics creates the collectors of the Prober and registers them into reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	bm, err1 := bootstrap.NewMetrics(reg)
	mm, err2 := mqtt.NewMetrics(reg)
	if err := multierr.Combine(err1, err2); err != nil {
		return nil, err
	}

	return &Metrics{Bootstrap: bm, MQTT: mm}, nil
}

// OptionsFn represents a function which sets an option in the Prober.
type OptionsFn func(p *Prober)

// WithLogger sets the given Logger into the Prober.
func WithLogger(log *logger.Logger) OptionsFn {
	return func(p *Prober) {
		p.log = log
	}
}

// WithMetrics sets the given Metrics into the Prober.
func WithMetrics(m *Metrics) OptionsFn {
	return func(p *Prober) {
		p.metrics = m
	}
}

// Prober runs probes against brokers. It's safe to run probes concurrently
// as each one uses its own connection.
type Prober struct {
	log     *logger.Logger
	metrics *Metrics
}

// New creates a Prober.
func New(opts ...OptionsFn) *Prober {
	p := &Prober{}
	for _, fn := range opts {
		fn(p)
	}

	if p.log == nil {
		nop := logger.Nop()
		p.log = &nop
	}
	if p.metrics == nil {
		p.metrics = &Metrics{}
	}

	return p
}

// Run performs one connection attempt and, when requested, the MQTT
// handshake. Every resource acquired is released before it returns. The
// returned error is the bootstrap or MQTT handshake error, if any.
func (p *Prober) Run(ctx context.Context, o Options) (Report, error) {
	start := time.Now()

	a := bootstrap.NewAttempt(o.Connection,
		bootstrap.WithLogger(p.log),
		bootstrap.WithMetrics(p.metrics.Bootstrap),
	)

	r := Report{
		AttemptID: a.ID(),
		Broker:    o.Connection.Address(),
		Insecure:  !o.Connection.VerifyPeer(),
	}

	if err := a.Configure(); err != nil {
		r.State = a.State().String()
		r.setError(err)
		r.setDuration(time.Since(start))
		return r, err
	}

	conn, err := a.Connect(ctx)
	r.State = a.State().String()
	if err != nil {
		r.setError(err)
		r.setDuration(time.Since(start))
		return r, err
	}

	r.setConnection(conn)

	if o.MQTT {
		err = p.handshake(conn, o.MQTTOptions, &r)
	}

	err = multierr.Append(err, conn.Close())
	if err != nil {
		r.setError(err)
	}

	r.setDuration(time.Since(start))
	return r, err
}

func (p *Prober) handshake(conn *bootstrap.Connection, o mqtt.Options,
	r *Report) error {

	r.MQTT = &MQTTReport{ClientID: o.ClientID}

	s, err := mqtt.Handshake(conn.NetConn(), o,
		mqtt.WithLogger(p.log),
		mqtt.WithMetrics(p.metrics.MQTT),
	)
	if err != nil {
		var refused *mqtt.RefusedError
		if errors.As(err, &refused) {
			rc := int(refused.Code)
			r.MQTT.ReturnCode = &rc
		}
		return err
	}

	rc := 0
	r.MQTT.ClientID = s.ClientID()
	r.MQTT.ReturnCode = &rc
	r.MQTT.SessionPresent = s.SessionPresent()
	s.Close()
	return nil
}
