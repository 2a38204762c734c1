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

package metrics_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gsalomao/mqprobe/metrics"
	"github.com/gsalomao/mqprobe/mocks"
	"github.com/gsalomao/mqprobe/probe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NewServer(t *testing.T) {
	reg := prometheus.NewRegistry()

	t.Run("Valid", func(t *testing.T) {
		logStub := mocks.NewLoggerStub()
		conf := metrics.Configuration{Address: ":8888", Path: "/metrics",
			Profiling: true}

		s, err := metrics.NewServer(conf, reg, logStub.Logger())
		assert.Nil(t, err)
		assert.NotNil(t, s)
		assert.Contains(t, logStub.String(), "Profiling enabled")
	})

	t.Run("MissingAddress", func(t *testing.T) {
		conf := metrics.Configuration{Path: "/metrics"}

		s, err := metrics.NewServer(conf, reg, nil)
		assert.Nil(t, s)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "missing address")
	})

	t.Run("MissingPath", func(t *testing.T) {
		conf := metrics.Configuration{Address: ":8888"}

		s, err := metrics.NewServer(conf, reg, nil)
		assert.Nil(t, s)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "missing path")
	})

	t.Run("MissingGatherer", func(t *testing.T) {
		conf := metrics.Configuration{Address: ":8888", Path: "/metrics"}

		s, err := metrics.NewServer(conf, nil, nil)
		assert.Nil(t, s)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "missing gatherer")
	})
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := probe.NewMetrics(reg)
	require.Nil(t, err)

	conf := metrics.Configuration{Address: ":8888", Path: "/metrics"}
	s, err := metrics.NewServer(conf, reg, nil)
	require.Nil(t, err)

	t.Run("Metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(),
			"mqprobe_bootstrap_insecure_connections_total")
	})

	t.Run("ProfilingDisabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMetrics_RunInvalidAddress(t *testing.T) {
	conf := metrics.Configuration{Address: ".", Path: "/metrics"}

	s, err := metrics.NewServer(conf, prometheus.NewRegistry(), nil)
	require.Nil(t, err)

	err = s.Run()
	assert.NotNil(t, err)
}

func TestMetrics_RunAndStop(t *testing.T) {
	logStub := mocks.NewLoggerStub()
	conf := metrics.Configuration{Address: "127.0.0.1:0", Path: "/metrics"}

	s, err := metrics.NewServer(conf, prometheus.NewRegistry(),
		logStub.Logger())
	require.Nil(t, err)

	done := make(chan error)
	go func() {
		done <- s.Run()
	}()

	require.Eventually(t, func() bool { return s.Addr() != nil },
		time.Second, time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", s.Addr()))
	require.Nil(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.Stop()
	assert.Nil(t, <-done)
	assert.Contains(t, logStub.String(), "Metrics Listening on")
	assert.Contains(t, logStub.String(), "stopped with success")
}
