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

// Package mqtt performs the MQTT session handshake (CONNECT and CONNACK) over
// an already established connection.
package mqtt

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gsalomao/mqprobe/logger"
)

// Extra time given to the MQTT client after its own deadline expires.
const waitGrace = time.Second

// The time, in milliseconds, to wait for the DISCONNECT packet to be sent.
const disconnectQuiesce = 250

// Session represents an MQTT session accepted by the broker.
type Session struct {
	client         paho.Client
	clientID       string
	sessionPresent bool
}

// ClientID returns the client identifier sent in the CONNECT packet.
func (s *Session) ClientID() string {
	return s.clientID
}

// SessionPresent indicates whether the broker resumed a previous session.
func (s *Session) SessionPresent() bool {
	return s.sessionPresent
}

// Close sends the DISCONNECT packet and closes the connection.
func (s *Session) Close() {
	s.client.Disconnect(disconnectQuiesce)
}

type handshake struct {
	log     *logger.Logger
	metrics *Metrics
}

// Handshake sends the CONNECT packet over conn and waits for the CONNACK
// packet. A single CONNECT is sent and the client never reconnects.
//
// On success the returned Session owns conn. On failure conn is closed.
func Handshake(conn net.Conn, o Options, opts ...OptionsFn) (*Session, error) {
	h := handshake{}
	for _, fn := range opts {
		fn(&h)
	}
	if h.log == nil {
		nop := logger.Nop()
		h.log = &nop
	}

	if err := o.Validate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	wc := &watchedConn{Conn: conn}
	clientID := clientIDOrDefault(o)
	timeout := timeoutDuration(o.Timeout)

	po := paho.NewClientOptions().
		AddBroker(brokerURLOrDefault(o, conn)).
		SetClientID(clientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetKeepAlive(timeoutDuration(o.KeepAlive)).
		SetProtocolVersion(uint(o.ProtocolVersion)).
		SetCleanSession(o.CleanSession).
		SetConnectTimeout(timeout).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetCustomOpenConnectionFn(
			func(_ *url.URL, _ paho.ClientOptions) (net.Conn, error) {
				return wc, nil
			},
		)

	if o.WillTopic != "" {
		po.SetWill(o.WillTopic, o.WillPayload, byte(o.WillQoS), o.WillRetain)
	}

	h.log.Debug().
		Str("ClientID", clientID).
		Int("ProtocolVersion", o.ProtocolVersion).
		Int("KeepAlive", o.KeepAlive).
		Bool("CleanSession", o.CleanSession).
		Msg("MQTT Sending CONNECT packet")

	start := time.Now()
	client := paho.NewClient(po)
	token := client.Connect()

	if !token.WaitTimeout(timeout + waitGrace) {
		_ = conn.Close()
		h.metrics.recordHandshake(resultTimeout, time.Since(start))
		h.log.Warn().Str("ClientID", clientID).Msg("MQTT CONNACK not received")
		return nil, fmt.Errorf("%w: no CONNACK after %v", ErrHandshakeTimeout,
			timeout)
	}
	elapsed := time.Since(start)

	if err := token.Error(); err != nil {
		_ = conn.Close()

		var rc byte
		if ct, ok := token.(*paho.ConnectToken); ok {
			rc = ct.ReturnCode()
		}
		err = classify(rc, wc.timedOut.Load(), err)

		var refused *RefusedError
		switch {
		case errors.As(err, &refused):
			h.metrics.recordHandshake(resultRefused, elapsed)
		case errors.Is(err, ErrHandshakeTimeout):
			h.metrics.recordHandshake(resultTimeout, elapsed)
		default:
			h.metrics.recordHandshake(resultFailed, elapsed)
		}

		h.log.Warn().
			Str("ClientID", clientID).
			Uint8("ReturnCode", rc).
			Dur("Elapsed", elapsed).
			Msg("MQTT Handshake failed: " + err.Error())
		return nil, err
	}

	s := &Session{client: client, clientID: clientID}
	if ct, ok := token.(*paho.ConnectToken); ok {
		s.sessionPresent = ct.SessionPresent()
	}

	h.metrics.recordHandshake(resultAccepted, elapsed)
	h.log.Info().
		Str("ClientID", clientID).
		Bool("SessionPresent", s.sessionPresent).
		Dur("Elapsed", elapsed).
		Msg("MQTT Connection accepted")
	return s, nil
}

// classify maps the outcome of the MQTT client into the handshake errors.
// Return codes from 0x80 onwards are the client's internal network and
// protocol errors, not values sent by the broker.
func classify(rc byte, timedOut bool, err error) error {
	switch {
	case rc > 0 && rc < 0x80:
		return &RefusedError{Code: rc}
	case timedOut:
		return fmt.Errorf("%w: %v", ErrHandshakeTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
}
