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

package bootstrap_test

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/gsalomao/mqprobe/bootstrap"
	"github.com/gsalomao/mqprobe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type broker struct {
	pki    *testutil.PKI
	server *testutil.Server
}

func startBroker(t *testing.T, conf *tls.Config) broker {
	t.Helper()

	pki := testutil.NewPKI(t, "MQProbe Test CA")
	if len(conf.Certificates) == 0 {
		leaf := pki.Issue(t, testutil.LeafOptions{CommonName: "broker"})
		conf.Certificates = []tls.Certificate{leaf.TLSCertificate(t)}
	}

	return broker{pki: pki, server: testutil.StartTLSServer(t, conf, nil)}
}

func configureTLS(t *testing.T, c bootstrap.ConnectionConfig) bootstrap.TLSContext {
	t.Helper()

	tc, err := bootstrap.ConfigureTLS(c)
	require.Nil(t, err)
	return tc
}

func TestConnect(t *testing.T) {
	b := startBroker(t, &tls.Config{})
	tc := configureTLS(t, bootstrap.ConnectionConfig{CAFile: b.pki.CAFile(t)})

	conn, err := bootstrap.Connect(context.Background(), tc, b.server.Host,
		b.server.Port, 5)
	require.Nil(t, err)
	defer func() { _ = conn.Close() }()

	assert.False(t, conn.Insecure())
	assert.Equal(t, "CN=broker", conn.PeerSubject())
	assert.NotNil(t, conn.NetConn())
	assert.Equal(t, b.server.Port, conn.RemoteAddr().(*net.TCPAddr).Port)

	st := conn.ConnectionState()
	assert.True(t, st.HandshakeComplete)
	assert.GreaterOrEqual(t, st.Version, uint16(tls.VersionTLS12))
}

func TestConnect_CloseIdempotent(t *testing.T) {
	b := startBroker(t, &tls.Config{})
	tc := configureTLS(t, bootstrap.ConnectionConfig{CAFile: b.pki.CAFile(t)})

	conn, err := bootstrap.Connect(context.Background(), tc, b.server.Host,
		b.server.Port, 5)
	require.Nil(t, err)

	assert.Nil(t, conn.Close())
	assert.Nil(t, conn.Close())
}

func TestConnect_WrongCA(t *testing.T) {
	b := startBroker(t, &tls.Config{})
	other := testutil.NewPKI(t, "Other CA")
	tc := configureTLS(t, bootstrap.ConnectionConfig{CAFile: other.CAFile(t)})

	conn, err := bootstrap.Connect(context.Background(), tc, b.server.Host,
		b.server.Port, 5)
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, bootstrap.ErrCertificateVerificationFailed)
}

func TestConnect_InsecureAcceptsWrongCA(t *testing.T) {
	b := startBroker(t, &tls.Config{})
	other := testutil.NewPKI(t, "Other CA")
	tc := configureTLS(t, bootstrap.ConnectionConfig{
		CAFile:                       other.CAFile(t),
		InsecureSkipPeerVerification: true,
	})

	conn, err := bootstrap.Connect(context.Background(), tc, b.server.Host,
		b.server.Port, 5)
	require.Nil(t, err)
	defer func() { _ = conn.Close() }()

	assert.True(t, conn.Insecure())
	assert.True(t, conn.ConnectionState().HandshakeComplete)
}

func TestConnect_HostnameMismatch(t *testing.T) {
	pki := testutil.NewPKI(t, "MQProbe Test CA")
	leaf := pki.Issue(t, testutil.LeafOptions{
		CommonName: "broker",
		DNSNames:   []string{"broker.mqprobe.test"},
	})
	s := testutil.StartTLSServer(t, &tls.Config{
		Certificates: []tls.Certificate{leaf.TLSCertificate(t)},
	}, nil)
	caFile := pki.CAFile(t)

	tc := configureTLS(t, bootstrap.ConnectionConfig{CAFile: caFile})
	_, err := bootstrap.Connect(context.Background(), tc, s.Host, s.Port, 5)
	assert.ErrorIs(t, err, bootstrap.ErrCertificateVerificationFailed)

	tc = configureTLS(t, bootstrap.ConnectionConfig{
		CAFile:     caFile,
		ServerName: "broker.mqprobe.test",
	})
	conn, err := bootstrap.Connect(context.Background(), tc, s.Host, s.Port, 5)
	require.Nil(t, err)
	_ = conn.Close()
}

func TestConnect_ExpiredCertificate(t *testing.T) {
	pki := testutil.NewPKI(t, "MQProbe Test CA")
	leaf := pki.Issue(t, testutil.LeafOptions{CommonName: "broker", Expired: true})
	s := testutil.StartTLSServer(t, &tls.Config{
		Certificates: []tls.Certificate{leaf.TLSCertificate(t)},
	}, nil)

	tc := configureTLS(t, bootstrap.ConnectionConfig{CAFile: pki.CAFile(t)})
	_, err := bootstrap.Connect(context.Background(), tc, s.Host, s.Port, 5)
	assert.ErrorIs(t, err, bootstrap.ErrCertificateVerificationFailed)
}

func TestConnect_CADir(t *testing.T) {
	b := startBroker(t, &tls.Config{})
	other := testutil.NewPKI(t, "Other CA")

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "broker-ca.pem", b.pki.CA.CertPEM)
	testutil.WriteFile(t, dir, "README", []byte("not a certificate"))
	require.Nil(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o700))

	tc := configureTLS(t, bootstrap.ConnectionConfig{
		CAFile: other.CAFile(t),
		CADir:  dir,
	})

	conn, err := bootstrap.Connect(context.Background(), tc, b.server.Host,
		b.server.Port, 5)
	require.Nil(t, err)
	_ = conn.Close()
}

func TestConnect_MutualTLS(t *testing.T) {
	pki := testutil.NewPKI(t, "MQProbe Test CA")
	leaf := pki.Issue(t, testutil.LeafOptions{CommonName: "broker"})
	client := pki.Issue(t, testutil.LeafOptions{CommonName: "probe", Client: true})

	s := testutil.StartTLSServer(t, &tls.Config{
		Certificates: []tls.Certificate{leaf.TLSCertificate(t)},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pki.Pool(),
	}, nil)

	certFile, keyFile := pki.WriteIdentity(t, "client", client)
	tc := configureTLS(t, bootstrap.ConnectionConfig{
		CAFile:     pki.CAFile(t),
		ClientCert: certFile,
		ClientKey:  keyFile,
	})
	require.True(t, tc.MutualTLS())

	conn, err := bootstrap.Connect(context.Background(), tc, s.Host, s.Port, 5)
	require.Nil(t, err)
	_ = conn.Close()
}

func TestConnect_CertificateLoadFailed(t *testing.T) {
	pki := testutil.NewPKI(t, "MQProbe Test CA")
	caFile := pki.CAFile(t)
	notPEM := testutil.WriteFile(t, pki.Dir, "not-pem.pem", []byte("garbage"))
	client := pki.Issue(t, testutil.LeafOptions{CommonName: "probe", Client: true})
	certFile, _ := pki.WriteIdentity(t, "client", client)

	testCases := []struct {
		name string
		conf bootstrap.ConnectionConfig
	}{
		{
			name: "MissingCAFile",
			conf: bootstrap.ConnectionConfig{
				CAFile: filepath.Join(pki.Dir, "missing.pem"),
			},
		},
		{
			name: "CAFileWithoutCertificate",
			conf: bootstrap.ConnectionConfig{CAFile: notPEM},
		},
		{
			name: "MissingCADir",
			conf: bootstrap.ConnectionConfig{
				CAFile: caFile,
				CADir:  filepath.Join(pki.Dir, "missing"),
			},
		},
		{
			name: "MissingClientKey",
			conf: bootstrap.ConnectionConfig{
				CAFile:     caFile,
				ClientCert: certFile,
				ClientKey:  filepath.Join(pki.Dir, "missing.key"),
			},
		},
		{
			name: "InvalidClientKey",
			conf: bootstrap.ConnectionConfig{
				CAFile:     caFile,
				ClientCert: certFile,
				ClientKey:  notPEM,
			},
		},
		{
			name: "Insecure",
			conf: bootstrap.ConnectionConfig{
				CAFile:                       notPEM,
				InsecureSkipPeerVerification: true,
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tc := configureTLS(t, test.conf)

			conn, err := bootstrap.Connect(context.Background(), tc,
				"127.0.0.1", testutil.ClosedPort(t), 5)
			assert.Nil(t, conn)
			assert.ErrorIs(t, err, bootstrap.ErrCertificateLoadFailed)
		})
	}
}

func TestConnect_TransportRefused(t *testing.T) {
	pki := testutil.NewPKI(t, "MQProbe Test CA")
	tc := configureTLS(t, bootstrap.ConnectionConfig{CAFile: pki.CAFile(t)})

	conn, err := bootstrap.Connect(context.Background(), tc, "127.0.0.1",
		testutil.ClosedPort(t), 5)
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, bootstrap.ErrTransportRefused)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
}

func TestConnect_TimeoutOnSilentBroker(t *testing.T) {
	pki := testutil.NewPKI(t, "MQProbe Test CA")
	s := testutil.StartSilentServer(t)
	tc := configureTLS(t, bootstrap.ConnectionConfig{CAFile: pki.CAFile(t)})

	start := time.Now()
	conn, err := bootstrap.Connect(context.Background(), tc, s.Host, s.Port, 1)
	elapsed := time.Since(start)

	assert.Nil(t, conn)
	assert.ErrorIs(t, err, bootstrap.ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestConnect_TimeoutOnNonRoutableAddress(t *testing.T) {
	pki := testutil.NewPKI(t, "MQProbe Test CA")
	tc := configureTLS(t, bootstrap.ConnectionConfig{CAFile: pki.CAFile(t)})

	start := time.Now()
	_, err := bootstrap.Connect(context.Background(), tc, "10.255.255.1", 8883, 1)
	elapsed := time.Since(start)

	if !errors.Is(err, bootstrap.ErrTimeout) {
		t.Skipf("network answered the non-routable address: %v", err)
	}

	assert.ErrorIs(t, err, bootstrap.ErrTimeout)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestConnect_HandshakeFailed(t *testing.T) {
	testCases := []struct {
		name   string
		server *tls.Config
		client bootstrap.ConnectionConfig
	}{
		{
			name:   "VersionMismatch",
			server: &tls.Config{MaxVersion: tls.VersionTLS12},
			client: bootstrap.ConnectionConfig{TLSVersion: "tlsv1.3"},
		},
		{
			name: "NoSharedCipher",
			server: &tls.Config{
				MaxVersion: tls.VersionTLS12,
				CipherSuites: []uint16{
					tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				},
			},
			client: bootstrap.ConnectionConfig{
				Ciphers: "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256",
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			b := startBroker(t, test.server)

			c := test.client
			c.CAFile = b.pki.CAFile(t)
			tc := configureTLS(t, c)

			conn, err := bootstrap.Connect(context.Background(), tc,
				b.server.Host, b.server.Port, 5)
			assert.Nil(t, conn)
			assert.ErrorIs(t, err, bootstrap.ErrHandshakeFailed)
		})
	}
}

func TestConnect_Canceled(t *testing.T) {
	b := startBroker(t, &tls.Config{})
	tc := configureTLS(t, bootstrap.ConnectionConfig{CAFile: b.pki.CAFile(t)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn, err := bootstrap.Connect(ctx, tc, b.server.Host, b.server.Port, 5)
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, bootstrap.ErrCanceled)
}

func TestConnect_InvalidParameters(t *testing.T) {
	tc := configureTLS(t, bootstrap.ConnectionConfig{CAFile: "ca.pem"})

	testCases := []struct {
		name    string
		host    string
		port    int
		timeout int
		err     error
	}{
		{name: "EmptyHost", port: 8883, timeout: 1,
			err: bootstrap.ErrInvalidBrokerAddress},
		{name: "PortZero", host: "localhost", timeout: 1,
			err: bootstrap.ErrInvalidBrokerAddress},
		{name: "PortOutOfRange", host: "localhost", port: 70000, timeout: 1,
			err: bootstrap.ErrInvalidBrokerAddress},
		{name: "ZeroTimeout", host: "localhost", port: 8883,
			err: bootstrap.ErrInvalidTimeout},
		{name: "TimeoutOverflow", host: "localhost", port: 8883,
			timeout: bootstrap.MaxConnectTimeout + 1,
			err:     bootstrap.ErrInvalidTimeout},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			conn, err := bootstrap.Connect(context.Background(), tc, test.host,
				test.port, test.timeout)
			assert.Nil(t, conn)
			assert.ErrorIs(t, err, test.err)

			var cfgErr *bootstrap.ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}
