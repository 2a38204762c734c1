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
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"
)

type phase int

const (
	phaseDial phase = iota
	phaseHandshake
)

// Connect opens a TCP connection to host:port and performs the TLS handshake
// using the material referenced by tc.
//
// The whole operation is bounded by timeout, in seconds. A single attempt is
// made and the socket is always closed when an error is returned. When the
// peer verification is disabled, the handshake accepts any broker certificate
// and the returned Connection reports it as insecure.
func Connect(ctx context.Context, tc TLSContext, host string, port,
	timeout int) (*Connection, error) {

	if err := validateEndpoint(host, port, timeout); err != nil {
		return nil, err
	}

	conf, err := tc.load()
	if err != nil {
		return nil, err
	}
	if conf.ServerName == "" {
		conf.ServerName = host
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	address := net.JoinHostPort(host, strconv.Itoa(port))

	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, classify(ctx, phaseDial, address, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(deadline)
	}

	tlsConn := tls.Client(nc, conf)
	if err = tlsConn.HandshakeContext(ctx); err != nil {
		_ = nc.Close()
		return nil, classify(ctx, phaseHandshake, address, err)
	}

	_ = nc.SetDeadline(time.Time{})
	return newConnection(tlsConn, !tc.verifyPeer), nil
}

func classify(ctx context.Context, p phase, address string,
	err error) *ConnectError {

	reason := "connect to " + address
	if p == phaseHandshake {
		reason = "TLS handshake with " + address
	}

	switch {
	case isVerificationError(err):
		return newConnectError(CertificateVerificationFailed, reason, err)
	case isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return newConnectError(Timeout, reason, err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return newConnectError(Canceled, reason, err)
	case isRemoteAlert(err):
		return newConnectError(HandshakeFailed, reason, err)
	case p == phaseDial || isTransportError(err):
		return newConnectError(TransportRefused, reason, err)
	default:
		return newConnectError(HandshakeFailed, reason, err)
	}
}

func isVerificationError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
		rootsErr     x509.SystemRootsError
	)

	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &rootsErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isRemoteAlert reports whether the broker aborted the handshake with a TLS
// alert, such as a rejected client certificate or no shared cipher suite.
func isRemoteAlert(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "remote error"
}

func isTransportError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.ECONNABORTED,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
		syscall.EPIPE,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
