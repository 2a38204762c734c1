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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const resultEstablished = "Established"

// Metrics holds the Prometheus collectors of the connection attempts.
type Metrics struct {
	attemptsTotal  *prometheus.CounterVec
	connectSeconds *prometheus.HistogramVec
	insecureTotal  prometheus.Counter
}

// NewMetrics creates the collectors and registers them into reg. When reg is
// nil, the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}

	m.attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mqprobe",
			Subsystem: "bootstrap",
			Name:      "attempts_total",
			Help:      "Number of connection attempts by result",
		}, []string{"result"},
	)

	m.connectSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mqprobe",
			Subsystem: "bootstrap",
			Name:      "connect_latency_seconds",
			Help: "Duration in seconds from the start of the connection " +
				"until the TLS handshake completes or fails",
			Buckets: []float64{
				0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
				30,
			},
		}, []string{"result"},
	)

	m.insecureTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mqprobe",
			Subsystem: "bootstrap",
			Name:      "insecure_connections_total",
			Help: "Number of connections established without verifying " +
				"the broker certificate",
		},
	)

	if reg != nil {
		err := reg.Register(m.attemptsTotal)
		err = multierr.Combine(err, reg.Register(m.connectSeconds))
		err = multierr.Combine(err, reg.Register(m.insecureTotal))
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) recordAttempt(result string, d time.Duration) {
	if m == nil {
		return
	}

	lb := prometheus.Labels{"result": result}
	m.attemptsTotal.With(lb).Inc()
	m.connectSeconds.With(lb).Observe(d.Seconds())
}

func (m *Metrics) recordInsecure() {
	if m == nil {
		return
	}
	m.insecureTotal.Inc()
}
