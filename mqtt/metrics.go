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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const (
	resultAccepted = "Accepted"
	resultRefused  = "Refused"
	resultTimeout  = "Timeout"
	resultFailed   = "Failed"
)

// Metrics holds the Prometheus collectors of the MQTT handshakes.
type Metrics struct {
	handshakesTotal  *prometheus.CounterVec
	handshakeSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them into reg. When reg is
// nil, the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}

	m.handshakesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mqprobe",
			Subsystem: "mqtt",
			Name:      "handshakes_total",
			Help:      "Number of MQTT handshakes by result",
		}, []string{"result"},
	)

	m.handshakeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mqprobe",
			Subsystem: "mqtt",
			Name:      "handshake_latency_seconds",
			Help:      "Duration in seconds from the CONNECT until the CONNACK",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	if reg != nil {
		err := reg.Register(m.handshakesTotal)
		err = multierr.Combine(err, reg.Register(m.handshakeSeconds))
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) recordHandshake(result string, d time.Duration) {
	if m == nil {
		return
	}

	m.handshakesTotal.With(prometheus.Labels{"result": result}).Inc()
	if result == resultAccepted {
		m.handshakeSeconds.Observe(d.Seconds())
	}
}
