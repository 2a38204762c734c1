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

// Package service runs the long-lived components of the probe daemon.
package service

import (
	"errors"
	"sync"

	"github.com/gsalomao/mqprobe/logger"
	"go.uber.org/multierr"
)

// Runner is a component which blocks in Run until Stop is called.
type Runner interface {
	// Run starts the runner. It blocks until the runner is stopped.
	Run() error

	// Stop stops the runner, unblocking the Run function.
	Stop()
}

// Service runs a set of runners and waits for all of them to stop.
type Service struct {
	log     *logger.Logger
	wg      sync.WaitGroup
	runners []Runner
	mtx     sync.Mutex
	err     error
}

// New creates a new Service.
func New(log *logger.Logger) *Service {
	if log == nil {
		nop := logger.Nop()
		log = &nop
	}
	return &Service{log: log}
}

// AddRunner adds a runner to the service.
func (s *Service) AddRunner(r Runner) {
	s.runners = append(s.runners, r)
}

// Start starts all runners, each one in its own goroutine.
func (s *Service) Start() error {
	s.log.Info().Msg("Starting service")

	if len(s.runners) == 0 {
		return errors.New("no available runner")
	}

	for _, r := range s.runners {
		s.wg.Add(1)
		go func(r Runner) {
			defer s.wg.Done()

			if err := r.Run(); err != nil {
				s.log.Error().Msg("Runner stopped with error: " + err.Error())

				s.mtx.Lock()
				s.err = multierr.Append(s.err, err)
				s.mtx.Unlock()
			}
		}(r)
	}

	s.log.Info().Msg("Service started with success")
	return nil
}

// Stop stops all runners.
func (s *Service) Stop() {
	s.log.Info().Msg("Stopping service")

	for _, r := range s.runners {
		r.Stop()
	}

	s.log.Info().Msg("Service stopped with success")
}

// Wait blocks until every runner has stopped. It returns the errors returned
// by the runners, if any.
func (s *Service) Wait() error {
	s.wg.Wait()

	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.err
}
