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
	"errors"
	"fmt"
)

var (
	// ErrInvalidOptions is returned when the handshake options are invalid.
	ErrInvalidOptions = errors.New("mqtt: invalid options")

	// ErrHandshakeTimeout is returned when the broker does not answer the
	// CONNECT packet in time.
	ErrHandshakeTimeout = errors.New("mqtt: handshake timed out")

	// ErrHandshakeFailed is returned when the handshake fails for a reason
	// other than a refused connection or a timeout.
	ErrHandshakeFailed = errors.New("mqtt: handshake failed")
)

var returnCodeNames = map[byte]string{
	0x01: "unacceptable protocol version",
	0x02: "identifier rejected",
	0x03: "server unavailable",
	0x04: "bad user name or password",
	0x05: "not authorized",
}

// RefusedError is returned when the broker refuses the connection in the
// CONNACK packet.
type RefusedError struct {
	// Code is the CONNACK return code.
	Code byte
}

// Error returns the return code and its meaning.
func (err *RefusedError) Error() string {
	name, ok := returnCodeNames[err.Code]
	if !ok {
		name = "unknown return code"
	}
	return fmt.Sprintf("mqtt: connection refused (0x%02X): %s", err.Code, name)
}
