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

package mocks

import "github.com/stretchr/testify/mock"

// RunnerMock is responsible to mock the service.Runner.
type RunnerMock struct {
	mock.Mock
	RunningCh chan bool
	StopCh    chan bool
	Err       error
}

// NewRunnerMock creates a RunnerMock.
func NewRunnerMock() *RunnerMock {
	return &RunnerMock{
		RunningCh: make(chan bool, 1),
		StopCh:    make(chan bool, 1),
	}
}

// Run signals RunningCh and blocks until Stop is called.
func (r *RunnerMock) Run() error {
	r.Called()

	r.RunningCh <- true
	<-r.StopCh

	return r.Err
}

// Stop unblocks the Run function.
func (r *RunnerMock) Stop() {
	r.Called()
	r.StopCh <- true
}
