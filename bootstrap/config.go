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

// Package bootstrap establishes TLS-protected connections to message brokers.
//
// A connection attempt goes through two steps. ConfigureTLS validates the
// certificate configuration and captures the verification policy without any
// I/O. Connect loads the certificate material, dials the broker and performs
// the TLS handshake within a bounded time, returning either an established
// Connection or a classified error.
package bootstrap

import (
	"math"
	"net"
	"strconv"
	"time"
)

// MaxConnectTimeout is the largest connect timeout, in seconds, which fits in
// a time.Duration.
const MaxConnectTimeout = int(math.MaxInt64 / int64(time.Second))

// ConnectionConfig holds the configuration of a single connection attempt.
type ConnectionConfig struct {
	// Path to the trusted CA certificate bundle (required).
	CAFile string

	// Optional path to a directory with trusted CA certificates.
	CADir string

	// Optional path to the client certificate for mutual TLS. It must be set
	// together with ClientKey.
	ClientCert string

	// Optional path to the client private key for mutual TLS. It must be set
	// together with ClientCert.
	ClientKey string

	// Disables the validation of the broker certificate chain and hostname.
	// The zero value keeps the peer verification enabled.
	InsecureSkipPeerVerification bool

	// Optional name used to verify the broker certificate and sent as SNI.
	// When empty, BrokerHost is used.
	ServerName string

	// Optional minimum TLS version ("tlsv1.2" or "tlsv1.3").
	TLSVersion string

	// Optional comma or colon separated list of TLS 1.2 cipher suite names.
	Ciphers string

	// Hostname or IP address of the broker.
	BrokerHost string

	// TCP port of the broker.
	BrokerPort int

	// The amount of time, in seconds, to wait for the connection and the TLS
	// handshake to complete.
	ConnectTimeout int
}

// VerifyPeer indicates whether the broker certificate must be verified.
func (c ConnectionConfig) VerifyPeer() bool {
	return !c.InsecureSkipPeerVerification
}

// Address returns the broker address in the <host>:<port> format.
func (c ConnectionConfig) Address() string {
	return net.JoinHostPort(c.BrokerHost, strconv.Itoa(c.BrokerPort))
}

// Validate checks all the invariants of the configuration.
func (c ConnectionConfig) Validate() error {
	if _, err := ConfigureTLS(c); err != nil {
		return err
	}

	return validateEndpoint(c.BrokerHost, c.BrokerPort, c.ConnectTimeout)
}

func validateEndpoint(host string, port, timeout int) error {
	if host == "" {
		return newConfigError(InvalidBrokerAddress, "missing broker host")
	}
	if port < 1 || port > 65535 {
		return newConfigError(InvalidBrokerAddress,
			"broker port "+strconv.Itoa(port)+" out of range (1-65535)")
	}
	if timeout <= 0 {
		return newConfigError(InvalidTimeout,
			"connect timeout must be greater than zero")
	}
	if timeout > MaxConnectTimeout {
		return newConfigError(InvalidTimeout,
			"connect timeout "+strconv.Itoa(timeout)+" exceeds "+
				strconv.Itoa(MaxConnectTimeout)+" seconds")
	}

	return nil
}
