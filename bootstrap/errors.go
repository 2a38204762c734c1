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
	"errors"
	"fmt"
)

// ConfigErrorKind represents the category of a configuration error.
type ConfigErrorKind int

const (
	// InvalidCertificatePaths indicates a missing CA file or a client
	// certificate without its key (or vice versa).
	InvalidCertificatePaths ConfigErrorKind = iota + 1

	// InvalidTLSOptions indicates an unknown TLS version or cipher suite.
	InvalidTLSOptions

	// InvalidBrokerAddress indicates an empty host or a port out of range.
	InvalidBrokerAddress

	// InvalidTimeout indicates a non-positive connect timeout.
	InvalidTimeout
)

var configErrorKindNames = map[ConfigErrorKind]string{
	InvalidCertificatePaths: "InvalidCertificatePaths",
	InvalidTLSOptions:       "InvalidTLSOptions",
	InvalidBrokerAddress:    "InvalidBrokerAddress",
	InvalidTimeout:          "InvalidTimeout",
}

// String returns the name of the kind.
func (k ConfigErrorKind) String() string {
	if n, ok := configErrorKindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// ConnectErrorKind represents the category of a connection error.
type ConnectErrorKind int

const (
	// CertificateLoadFailed indicates that a certificate or key could not be
	// read or parsed.
	CertificateLoadFailed ConnectErrorKind = iota + 1

	// CertificateVerificationFailed indicates that the broker certificate
	// chain or hostname did not validate.
	CertificateVerificationFailed

	// Timeout indicates that the connection or the handshake did not complete
	// in time.
	Timeout

	// TransportRefused indicates that the network refused, reset or could not
	// reach the broker.
	TransportRefused

	// HandshakeFailed indicates a TLS protocol failure other than a trust
	// failure, such as an alert from the broker or a version mismatch.
	HandshakeFailed

	// Canceled indicates that the caller canceled the attempt.
	Canceled
)

var connectErrorKindNames = map[ConnectErrorKind]string{
	CertificateLoadFailed:         "CertificateLoadFailed",
	CertificateVerificationFailed: "CertificateVerificationFailed",
	Timeout:                       "Timeout",
	TransportRefused:              "TransportRefused",
	HandshakeFailed:               "HandshakeFailed",
	Canceled:                      "Canceled",
}

// String returns the name of the kind.
func (k ConnectErrorKind) String() string {
	if n, ok := connectErrorKindNames[k]; ok {
		return n
	}
	return "Unknown"
}

var (
	// ErrInvalidCertificatePaths matches any ConfigError of kind
	// InvalidCertificatePaths.
	ErrInvalidCertificatePaths = &ConfigError{Kind: InvalidCertificatePaths}

	// ErrInvalidTLSOptions matches any ConfigError of kind InvalidTLSOptions.
	ErrInvalidTLSOptions = &ConfigError{Kind: InvalidTLSOptions}

	// ErrInvalidBrokerAddress matches any ConfigError of kind
	// InvalidBrokerAddress.
	ErrInvalidBrokerAddress = &ConfigError{Kind: InvalidBrokerAddress}

	// ErrInvalidTimeout matches any ConfigError of kind InvalidTimeout.
	ErrInvalidTimeout = &ConfigError{Kind: InvalidTimeout}

	// ErrCertificateLoadFailed matches any ConnectError of kind
	// CertificateLoadFailed.
	ErrCertificateLoadFailed = &ConnectError{Kind: CertificateLoadFailed}

	// ErrCertificateVerificationFailed matches any ConnectError of kind
	// CertificateVerificationFailed.
	ErrCertificateVerificationFailed = &ConnectError{
		Kind: CertificateVerificationFailed,
	}

	// ErrTimeout matches any ConnectError of kind Timeout.
	ErrTimeout = &ConnectError{Kind: Timeout}

	// ErrTransportRefused matches any ConnectError of kind TransportRefused.
	ErrTransportRefused = &ConnectError{Kind: TransportRefused}

	// ErrHandshakeFailed matches any ConnectError of kind HandshakeFailed.
	ErrHandshakeFailed = &ConnectError{Kind: HandshakeFailed}

	// ErrCanceled matches any ConnectError of kind Canceled.
	ErrCanceled = &ConnectError{Kind: Canceled}

	// ErrInvalidState indicates an operation not allowed in the current state
	// of the Attempt.
	ErrInvalidState = errors.New("invalid attempt state")
)

// ConfigError represents an invalid connection configuration. It is detected
// before any I/O takes place.
type ConfigError struct {
	// Kind is the category of the error.
	Kind ConfigErrorKind

	// Reason is a human-friendly message about the error.
	Reason string
}

func newConfigError(k ConfigErrorKind, reason string) *ConfigError {
	return &ConfigError{Kind: k, Reason: reason}
}

// Error returns a string with the kind and the reason of the error.
func (err *ConfigError) Error() string {
	if err.Reason == "" {
		return err.Kind.String()
	}
	return fmt.Sprintf("%s: %s", err.Kind, err.Reason)
}

// Is reports whether target is a ConfigError of the same kind.
func (err *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	return ok && t.Kind == err.Kind
}

// ConnectError represents a failure while connecting to the broker.
type ConnectError struct {
	// Kind is the category of the error.
	Kind ConnectErrorKind

	// Reason is a human-friendly message about the error.
	Reason string

	// Err is the underlying error, such as the OS-level error.
	Err error
}

func newConnectError(k ConnectErrorKind, reason string, err error) *ConnectError {
	return &ConnectError{Kind: k, Reason: reason, Err: err}
}

// Error returns a string with the kind, the reason and the underlying error.
func (err *ConnectError) Error() string {
	msg := err.Kind.String()
	if err.Reason != "" {
		msg += ": " + err.Reason
	}
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (err *ConnectError) Unwrap() error {
	return err.Err
}

// Is reports whether target is a ConnectError of the same kind.
func (err *ConnectError) Is(target error) bool {
	t, ok := target.(*ConnectError)
	return ok && t.Kind == err.Kind
}

// KindOf returns the kind name of a ConfigError or ConnectError found in the
// err chain. It returns an empty string if there is none.
func KindOf(err error) string {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Kind.String()
	}

	var connErr *ConnectError
	if errors.As(err, &connErr) {
		return connErr.Kind.String()
	}

	return ""
}
