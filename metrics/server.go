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

// Package metrics exports the probe metrics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gsalomao/mqprobe/internal/safe"
	"github.com/gsalomao/mqprobe/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents an HTTP server responsible for exporting metrics.
type Server struct {
	conf Configuration
	srv  *http.Server
	log  *logger.Logger
	addr safe.Value[net.Addr]
}

// NewServer creates a Server which exports the metrics collected by the
// given gatherer.
func NewServer(c Configuration, g prometheus.Gatherer,
	log *logger.Logger) (*Server, error) {

	if c.Address == "" {
		return nil, errors.New("metrics missing address")
	}
	if c.Path == "" {
		return nil, errors.New("metrics missing path")
	}
	if g == nil {
		return nil, errors.New("metrics missing gatherer")
	}
	if log == nil {
		nop := logger.Nop()
		log = &nop
	}

	m := http.NewServeMux()
	m.Handle(c.Path, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	if c.Profiling {
		log.Info().Msg("Metrics Profiling enabled")
		m.HandleFunc("/debug/pprof/", pprof.Index)
		m.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		m.HandleFunc("/debug/pprof/profile", pprof.Profile)
		m.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		m.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	s := &http.Server{
		Addr:         c.Address,
		Handler:      m,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	return &Server{conf: c, srv: s, log: log}, nil
}

// Handler returns the HTTP handler serving the metrics.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Addr returns the address the server is listening on, or nil when it's not
// running.
func (s *Server) Addr() net.Addr {
	addr, _ := s.addr.Load()
	return addr
}

// Run starts the execution of the server.
// Once called, it blocks waiting for connections until it's stopped by the
// Stop function.
func (s *Server) Run() error {
	lsn, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	s.log.Info().Msg("Metrics Listening on " + lsn.Addr().String() +
		s.conf.Path)
	s.addr.Store(lsn.Addr())

	if err = s.srv.Serve(lsn); err != http.ErrServerClosed {
		return err
	}

	s.log.Debug().Msg("Metrics Server stopped with success")
	return nil
}

// Stop stops the server.
// Once called, it unblocks the Run function.
func (s *Server) Stop() {
	s.log.Debug().Msg("Metrics Stopping server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.srv.Shutdown(ctx)
	if err != nil {
		_ = s.srv.Close()
	}
}
