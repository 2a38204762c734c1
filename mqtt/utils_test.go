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
	"net"
	"strings"
	"testing"
	"time"

	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/gsalomao/mqprobe/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateClientID(t *testing.T) {
	testCases := []string{"", "mqprobe-", "a"}

	for _, prefix := range testCases {
		t.Run(prefix, func(t *testing.T) {
			id := generateClientID(prefix)
			assert.Len(t, id, len(prefix)+20)
			assert.True(t, strings.HasPrefix(id, prefix))
			assert.NotEqual(t, id, generateClientID(prefix))
		})
	}
}

func TestClientIDOrDefault(t *testing.T) {
	assert.Equal(t, "probe", clientIDOrDefault(Options{ClientID: "probe"}))
	assert.Len(t, clientIDOrDefault(Options{ClientIDPrefix: "p-"}), 22)
}

func TestClassify(t *testing.T) {
	cause := errors.New("EOF")

	var refused *RefusedError
	err := classify(packets.ErrRefusedNotAuthorised, false, cause)
	require.True(t, errors.As(err, &refused))
	assert.Equal(t, byte(5), refused.Code)

	err = classify(packets.ErrNetworkError, true, cause)
	assert.ErrorIs(t, err, ErrHandshakeTimeout)

	err = classify(packets.ErrNetworkError, false, cause)
	assert.ErrorIs(t, err, ErrHandshakeFailed)

	err = classify(packets.ErrProtocolViolation, false, cause)
	assert.ErrorIs(t, err, ErrHandshakeFailed)
}

func TestRefusedError_UnknownCode(t *testing.T) {
	err := &RefusedError{Code: 0x7A}
	assert.Equal(t, "mqtt: connection refused (0x7A): unknown return code",
		err.Error())
}

func TestWatchedConn_Timeout(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = server.Close() }()

	wc := &watchedConn{Conn: client}
	require.Nil(t, wc.SetReadDeadline(time.Now().Add(10*time.Millisecond)))

	_, err := wc.Read(make([]byte, 1))
	assert.NotNil(t, err)
	assert.True(t, wc.timedOut.Load())
}

func TestMetrics_Handshake(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.Nil(t, err)

	_, err = NewMetrics(reg)
	assert.NotNil(t, err)

	accept := &testutil.MQTTBroker{}
	client, server := net.Pipe()
	go accept.Serve(server)
	defer func() { _ = server.Close() }()

	s, err := Handshake(client, DefaultOptions(), WithMetrics(m))
	require.Nil(t, err)
	s.Close()

	refuse := &testutil.MQTTBroker{ReturnCode: packets.ErrRefusedIDRejected}
	client, server = net.Pipe()
	go refuse.Serve(server)
	defer func() { _ = server.Close() }()

	_, err = Handshake(client, DefaultOptions(), WithMetrics(m))
	require.NotNil(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(
		m.handshakesTotal.WithLabelValues(resultAccepted)))
	assert.Equal(t, 1.0, promtest.ToFloat64(
		m.handshakesTotal.WithLabelValues(resultRefused)))
	assert.Equal(t, 1, promtest.CollectAndCount(m.handshakeSeconds))
}
