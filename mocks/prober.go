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

import (
	"context"

	"github.com/gsalomao/mqprobe/probe"
	"github.com/stretchr/testify/mock"
)

// ProberMock is responsible to mock the api.Prober.
type ProberMock struct {
	mock.Mock
}

// Run records the call and returns the configured report and error.
func (p *ProberMock) Run(ctx context.Context, o probe.Options) (probe.Report,
	error) {

	args := p.Called(ctx, o)
	return args.Get(0).(probe.Report), args.Error(1)
}
