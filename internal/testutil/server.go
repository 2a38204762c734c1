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

package testutil

import (
	"crypto/tls"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// Server is a TCP server listening on the loopback interface.
type Server struct {
	Host string
	Port int

	ln     net.Listener
	wg     sync.WaitGroup
	mtx    sync.Mutex
	conns  []net.Conn
	closed bool
}

// StartTLSServer starts a server which performs the TLS handshake with conf
// on every accepted connection and then passes it to handler. A nil handler
// drains the connection until the client closes it. The server stops when
// the test finishes.
func StartTLSServer(t *testing.T, conf *tls.Config,
	handler func(net.Conn)) *Server {

	t.Helper()

	return startServer(t, func(c net.Conn) {
		tc := tls.Server(c, conf)
		if err := tc.Handshake(); err != nil {
			// Lets the client read the alert before the socket is closed.
			_ = c.SetReadDeadline(time.Now().Add(time.Second))
			_, _ = io.Copy(io.Discard, c)
			return
		}
		if handler == nil {
			_, _ = io.Copy(io.Discard, tc)
			return
		}
		handler(tc)
	})
}

// StartSilentServer starts a server which accepts connections but never
// writes a byte, holding them open until the test finishes.
func StartSilentServer(t *testing.T) *Server {
	t.Helper()

	return startServer(t, func(c net.Conn) {
		_, _ = io.Copy(io.Discard, c)
	})
}

// ClosedPort returns a loopback port with nothing listening on it.
func ClosedPort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func startServer(t *testing.T, handle func(net.Conn)) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	addr := ln.Addr().(*net.TCPAddr)
	s := &Server{Host: addr.IP.String(), Port: addr.Port, ln: ln}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}

			s.mtx.Lock()
			if s.closed {
				s.mtx.Unlock()
				_ = c.Close()
				return
			}
			s.conns = append(s.conns, c)
			s.mtx.Unlock()

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer func() { _ = c.Close() }()
				handle(c)
			}()
		}
	}()

	t.Cleanup(s.Close)
	return s
}

// Close stops the server and closes every accepted connection.
func (s *Server) Close() {
	_ = s.ln.Close()

	s.mtx.Lock()
	s.closed = true
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
	s.mtx.Unlock()

	s.wg.Wait()
}
