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
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tlsMinVersion is the minimum TLS version used when none is configured.
const tlsMinVersion = tls.VersionTLS12

var tlsVersions = map[string]uint16{
	"tlsv1.2": tls.VersionTLS12,
	"tlsv1.3": tls.VersionTLS13,
}

// TLSContext captures the verification policy and the references to the
// certificate material of a connection. It is created by ConfigureTLS and
// holds no open resource.
type TLSContext struct {
	caFile       string
	caDir        string
	clientCert   string
	clientKey    string
	serverName   string
	verifyPeer   bool
	minVersion   uint16
	cipherSuites []uint16
}

// ConfigureTLS validates the certificate configuration and creates the
// TLSContext used to connect to the broker.
//
// No file is read and no network I/O takes place. Failures to read or parse
// the certificate material are reported by Connect.
func ConfigureTLS(c ConnectionConfig) (TLSContext, error) {
	if c.CAFile == "" {
		return TLSContext{}, newConfigError(InvalidCertificatePaths,
			"missing CA file")
	}
	if (c.ClientCert == "") != (c.ClientKey == "") {
		return TLSContext{}, newConfigError(InvalidCertificatePaths,
			"client certificate and key must be set together")
	}

	version, err := parseTLSVersion(c.TLSVersion)
	if err != nil {
		return TLSContext{}, err
	}

	suites, err := parseCipherSuites(c.Ciphers, version)
	if err != nil {
		return TLSContext{}, err
	}

	return TLSContext{
		caFile:       c.CAFile,
		caDir:        c.CADir,
		clientCert:   c.ClientCert,
		clientKey:    c.ClientKey,
		serverName:   c.ServerName,
		verifyPeer:   c.VerifyPeer(),
		minVersion:   version,
		cipherSuites: suites,
	}, nil
}

// VerifyPeer indicates whether the broker certificate is verified.
func (tc TLSContext) VerifyPeer() bool {
	return tc.verifyPeer
}

// MutualTLS indicates whether a client certificate is presented.
func (tc TLSContext) MutualTLS() bool {
	return tc.clientCert != ""
}

// load reads the certificate material and builds the tls.Config.
func (tc TLSContext) load() (*tls.Config, error) {
	pool := x509.NewCertPool()

	data, err := os.ReadFile(tc.caFile)
	if err != nil {
		return nil, newConnectError(CertificateLoadFailed, "read CA file", err)
	}
	if !pool.AppendCertsFromPEM(data) {
		return nil, newConnectError(CertificateLoadFailed,
			fmt.Sprintf("no certificate found in CA file %q", tc.caFile), nil)
	}

	if tc.caDir != "" {
		if err = appendCertsFromDir(pool, tc.caDir); err != nil {
			return nil, err
		}
	}

	conf := &tls.Config{
		RootCAs:            pool,
		ServerName:         tc.serverName,
		MinVersion:         tc.minVersion,
		CipherSuites:       tc.cipherSuites,
		InsecureSkipVerify: !tc.verifyPeer, //nolint:gosec
	}

	if tc.clientCert != "" {
		var cert tls.Certificate

		cert, err = tls.LoadX509KeyPair(tc.clientCert, tc.clientKey)
		if err != nil {
			return nil, newConnectError(CertificateLoadFailed,
				"load client certificate and key", err)
		}
		conf.Certificates = []tls.Certificate{cert}
	}

	return conf, nil
}

func appendCertsFromDir(pool *x509.CertPool, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return newConnectError(CertificateLoadFailed, "read CA directory", err)
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())

		// Follows symbolic links, as hashed CA directories are made of them.
		info, err := os.Stat(path)
		if err != nil {
			return newConnectError(CertificateLoadFailed,
				"read CA directory", err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return newConnectError(CertificateLoadFailed,
				"read CA directory", err)
		}
		_ = pool.AppendCertsFromPEM(data)
	}

	return nil
}

func parseTLSVersion(v string) (uint16, error) {
	if v == "" {
		return tlsMinVersion, nil
	}

	version, ok := tlsVersions[strings.ToLower(v)]
	if !ok {
		return 0, newConfigError(InvalidTLSOptions,
			fmt.Sprintf("unsupported TLS version %q", v))
	}

	return version, nil
}

// parseCipherSuites parses the TLS 1.2 cipher suites. TLS 1.3 suites are not
// configurable, so they are rejected, as is any list when the minimum version
// is TLS 1.3.
func parseCipherSuites(ciphers string, minVersion uint16) ([]uint16, error) {
	names := strings.FieldsFunc(ciphers, func(r rune) bool {
		return r == ',' || r == ':'
	})
	if len(names) == 0 {
		return nil, nil
	}
	if minVersion >= tls.VersionTLS13 {
		return nil, newConfigError(InvalidTLSOptions,
			"cipher suites cannot be set when the minimum version is TLS 1.3")
	}

	known := make(map[string]uint16)
	for _, cs := range tls.CipherSuites() {
		if supportsTLS12(cs) {
			known[cs.Name] = cs.ID
		}
	}

	suites := make([]uint16, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		id, ok := known[n]
		if !ok {
			return nil, newConfigError(InvalidTLSOptions,
				fmt.Sprintf("unknown TLS 1.2 cipher suite %q", n))
		}
		suites = append(suites, id)
	}

	return suites, nil
}

func supportsTLS12(cs *tls.CipherSuite) bool {
	for _, v := range cs.SupportedVersions {
		if v == tls.VersionTLS12 {
			return true
		}
	}
	return false
}
