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
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gsalomao/mqprobe/bootstrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureTLS(t *testing.T) {
	c := bootstrap.ConnectionConfig{
		CAFile:     "/nonexistent/ca.pem",
		ClientCert: "/nonexistent/client.pem",
		ClientKey:  "/nonexistent/client.key",
	}

	tc, err := bootstrap.ConfigureTLS(c)
	require.Nil(t, err)
	assert.True(t, tc.VerifyPeer())
	assert.True(t, tc.MutualTLS())
}

func TestConfigureTLS_MissingCAFile(t *testing.T) {
	c := bootstrap.ConnectionConfig{CADir: t.TempDir()}

	_, err := bootstrap.ConfigureTLS(c)
	assert.ErrorIs(t, err, bootstrap.ErrInvalidCertificatePaths)
}

func TestConfigureTLS_CertKeyPairing(t *testing.T) {
	testCases := []struct {
		name string
		cert string
		key  string
		ok   bool
	}{
		{name: "Neither", ok: true},
		{name: "Both", cert: "client.pem", key: "client.key", ok: true},
		{name: "CertOnly", cert: "client.pem"},
		{name: "KeyOnly", key: "client.key"},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			c := bootstrap.ConnectionConfig{
				CAFile:     gofakeit.Word() + ".pem",
				ClientCert: test.cert,
				ClientKey:  test.key,
			}

			_, err := bootstrap.ConfigureTLS(c)
			if test.ok {
				assert.Nil(t, err)
			} else {
				assert.ErrorIs(t, err, bootstrap.ErrInvalidCertificatePaths)
			}
		})
	}
}

func TestConfigureTLS_TLSOptions(t *testing.T) {
	testCases := []struct {
		name    string
		version string
		ciphers string
		ok      bool
	}{
		{name: "Defaults", ok: true},
		{name: "TLSv1.2", version: "tlsv1.2", ok: true},
		{name: "TLSv1.3Upper", version: "TLSv1.3", ok: true},
		{name: "TLSv1.1", version: "tlsv1.1"},
		{name: "UnknownVersion", version: "ssl3"},
		{
			name:    "Ciphers",
			ciphers: "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256:TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256",
			ok:      true,
		},
		{
			name:    "CiphersWithComma",
			ciphers: "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256, TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384",
			ok:      true,
		},
		{name: "UnknownCipher", ciphers: "ECDHE-RSA-AES128-GCM-SHA256"},
		{name: "TLSv1.3Cipher", ciphers: "TLS_AES_128_GCM_SHA256"},
		{
			name:    "CiphersWithTLSv1.3",
			version: "tlsv1.3",
			ciphers: "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256",
		},
		{name: "TLSv1.3WithoutCiphers", version: "tlsv1.3", ok: true},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			c := bootstrap.ConnectionConfig{
				CAFile:     "ca.pem",
				TLSVersion: test.version,
				Ciphers:    test.ciphers,
			}

			_, err := bootstrap.ConfigureTLS(c)
			if test.ok {
				assert.Nil(t, err)
			} else {
				assert.ErrorIs(t, err, bootstrap.ErrInvalidTLSOptions)
			}
		})
	}
}

func TestConfigureTLS_Idempotent(t *testing.T) {
	c := bootstrap.ConnectionConfig{
		CAFile:                       gofakeit.Word() + ".pem",
		CADir:                        gofakeit.Word(),
		ClientCert:                   "client.pem",
		ClientKey:                    "client.key",
		InsecureSkipPeerVerification: gofakeit.Bool(),
		ServerName:                   gofakeit.DomainName(),
		TLSVersion:                   "tlsv1.2",
		Ciphers:                      "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256",
	}

	tc1, err := bootstrap.ConfigureTLS(c)
	require.Nil(t, err)

	tc2, err := bootstrap.ConfigureTLS(c)
	require.Nil(t, err)

	assert.Equal(t, tc1, tc2)
}

func TestConfigureTLS_Insecure(t *testing.T) {
	c := bootstrap.ConnectionConfig{
		CAFile:                       "ca.pem",
		InsecureSkipPeerVerification: true,
	}

	tc, err := bootstrap.ConfigureTLS(c)
	require.Nil(t, err)
	assert.False(t, tc.VerifyPeer())
	assert.False(t, tc.MutualTLS())
}

func TestConnectionConfig_Validate(t *testing.T) {
	valid := bootstrap.ConnectionConfig{
		CAFile:         "ca.pem",
		BrokerHost:     "localhost",
		BrokerPort:     8883,
		ConnectTimeout: 5,
	}
	assert.Nil(t, valid.Validate())
	assert.True(t, valid.VerifyPeer())
	assert.Equal(t, "localhost:8883", valid.Address())

	testCases := []struct {
		name   string
		modify func(c *bootstrap.ConnectionConfig)
		err    error
	}{
		{
			name:   "MissingCA",
			modify: func(c *bootstrap.ConnectionConfig) { c.CAFile = "" },
			err:    bootstrap.ErrInvalidCertificatePaths,
		},
		{
			name:   "MissingHost",
			modify: func(c *bootstrap.ConnectionConfig) { c.BrokerHost = "" },
			err:    bootstrap.ErrInvalidBrokerAddress,
		},
		{
			name:   "PortZero",
			modify: func(c *bootstrap.ConnectionConfig) { c.BrokerPort = 0 },
			err:    bootstrap.ErrInvalidBrokerAddress,
		},
		{
			name:   "PortTooHigh",
			modify: func(c *bootstrap.ConnectionConfig) { c.BrokerPort = 65536 },
			err:    bootstrap.ErrInvalidBrokerAddress,
		},
		{
			name:   "ZeroTimeout",
			modify: func(c *bootstrap.ConnectionConfig) { c.ConnectTimeout = 0 },
			err:    bootstrap.ErrInvalidTimeout,
		},
		{
			name:   "NegativeTimeout",
			modify: func(c *bootstrap.ConnectionConfig) { c.ConnectTimeout = -1 },
			err:    bootstrap.ErrInvalidTimeout,
		},
		{
			name: "TimeoutOverflow",
			modify: func(c *bootstrap.ConnectionConfig) {
				c.ConnectTimeout = bootstrap.MaxConnectTimeout + 1
			},
			err: bootstrap.ErrInvalidTimeout,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			c := valid
			test.modify(&c)

			err := c.Validate()
			assert.ErrorIs(t, err, test.err)
		})
	}
}

func TestConnectionConfig_AddressIPv6(t *testing.T) {
	c := bootstrap.ConnectionConfig{BrokerHost: "::1", BrokerPort: 8883}
	assert.Equal(t, "[::1]:8883", c.Address())
}
