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

package cli

import (
	"errors"

	"github.com/gsalomao/mqprobe/bootstrap"
	"github.com/gsalomao/mqprobe/mqtt"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

var configExitCodes = map[bootstrap.ConfigErrorKind]int{
	bootstrap.InvalidCertificatePaths: 3,
	bootstrap.InvalidTLSOptions:       4,
	bootstrap.InvalidBrokerAddress:    5,
	bootstrap.InvalidTimeout:          6,
}

var connectExitCodes = map[bootstrap.ConnectErrorKind]int{
	bootstrap.CertificateLoadFailed:         10,
	bootstrap.CertificateVerificationFailed: 11,
	bootstrap.Timeout:                       12,
	bootstrap.TransportRefused:              13,
	bootstrap.HandshakeFailed:               14,
	bootstrap.Canceled:                      15,
}

const (
	exitMQTTRefused = 20
	exitMQTTTimeout = 21
)

// ExitCode returns the process exit code for the given error.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}

	var cfgErr *bootstrap.ConfigError
	if errors.As(err, &cfgErr) {
		if code, ok := configExitCodes[cfgErr.Kind]; ok {
			return code
		}
		return exitFailure
	}

	var connErr *bootstrap.ConnectError
	if errors.As(err, &connErr) {
		if code, ok := connectExitCodes[connErr.Kind]; ok {
			return code
		}
		return exitFailure
	}

	var refused *mqtt.RefusedError
	switch {
	case errors.As(err, &refused):
		return exitMQTTRefused
	case errors.Is(err, mqtt.ErrHandshakeTimeout):
		return exitMQTTTimeout
	default:
		return exitFailure
	}
}
