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
	"crypto/tls"
	"errors"
	"net"
	"sync"
)

// Connection represents an established TLS connection with the broker.
type Connection struct {
	conn     *tls.Conn
	insecure bool
	once     sync.Once
	err      error
}

func newConnection(c *tls.Conn, insecure bool) *Connection {
	return &Connection{conn: c, insecure: insecure}
}

// NetConn returns the connection to be used by the messaging protocol.
func (c *Connection) NetConn() net.Conn {
	return c.conn
}

// Insecure indicates whether the broker certificate was accepted without
// verification.
func (c *Connection) Insecure() bool {
	return c.insecure
}

// RemoteAddr returns the address of the broker.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ConnectionState returns the negotiated TLS parameters.
func (c *Connection) ConnectionState() tls.ConnectionState {
	return c.conn.ConnectionState()
}

// PeerSubject returns the subject of the broker leaf certificate.
func (c *Connection) PeerSubject() string {
	st := c.conn.ConnectionState()
	if len(st.PeerCertificates) == 0 {
		return ""
	}
	return st.PeerCertificates[0].Subject.String()
}

// Close closes the connection. It's safe to call it more than once, even
// after the messaging protocol has closed the connection.
func (c *Connection) Close() error {
	c.once.Do(func() {
		err := c.conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			c.err = err
		}
	})

	return c.err
}
