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
	"io"
	"net"
	"sync"

	"github.com/eclipse/paho.mqtt.golang/packets"
)

// MQTTBroker answers the MQTT handshake on the connections it serves.
type MQTTBroker struct {
	// ReturnCode is sent in the CONNACK packet.
	ReturnCode byte

	// Silent makes the broker read the CONNECT packet and never answer it.
	Silent bool

	mtx      sync.Mutex
	connects []*packets.ConnectPacket
}

// Serve reads the CONNECT packet and answers it with a CONNACK. Afterwards,
// it answers PINGREQ packets until the client disconnects.
func (b *MQTTBroker) Serve(c net.Conn) {
	p, err := packets.ReadPacket(c)
	if err != nil {
		return
	}

	connect, ok := p.(*packets.ConnectPacket)
	if !ok {
		return
	}

	b.mtx.Lock()
	b.connects = append(b.connects, connect)
	b.mtx.Unlock()

	if b.Silent {
		_, _ = io.Copy(io.Discard, c)
		return
	}

	connAck := packets.NewControlPacket(packets.Connack).(*packets.ConnackPacket)
	connAck.ReturnCode = b.ReturnCode
	if err = connAck.Write(c); err != nil || b.ReturnCode != packets.Accepted {
		return
	}

	for {
		p, err = packets.ReadPacket(c)
		if err != nil {
			return
		}

		switch p.(type) {
		case *packets.PingreqPacket:
			resp := packets.NewControlPacket(packets.Pingresp)
			if err = resp.Write(c); err != nil {
				return
			}
		case *packets.DisconnectPacket:
			return
		}
	}
}

// Connects returns the CONNECT packets received so far.
func (b *MQTTBroker) Connects() []*packets.ConnectPacket {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	c := make([]*packets.ConnectPacket, len(b.connects))
	copy(c, b.connects)
	return c
}
