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
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

func generateClientID(prefix string) string {
	pLen := len(prefix)
	cID := make([]byte, pLen+20)

	if pLen > 0 {
		_ = copy(cID, prefix)
	}

	guid := xid.New()
	_ = guid.Encode(cID[pLen:])
	return string(cID)
}

func clientIDOrDefault(o Options) string {
	if o.ClientID != "" {
		return o.ClientID
	}
	return generateClientID(o.ClientIDPrefix)
}

func brokerURLOrDefault(o Options, conn net.Conn) string {
	if o.BrokerURL != "" {
		return o.BrokerURL
	}
	return "tcp://" + conn.RemoteAddr().String()
}

func timeoutDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// watchedConn records whether a read from the connection hit its deadline.
type watchedConn struct {
	net.Conn
	timedOut atomic.Bool
}

func (c *watchedConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		c.timedOut.Store(true)
	}
	return n, err
}
