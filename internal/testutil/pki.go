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

// Package testutil provides a throwaway PKI and TLS brokers for tests.
package testutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

var serial int64

// Identity is a certificate together with its private key.
type Identity struct {
	Cert    *x509.Certificate
	Key     crypto.Signer
	CertPEM []byte
	KeyPEM  []byte
}

// TLSCertificate returns the identity as a tls.Certificate.
func (id Identity) TLSCertificate(t *testing.T) tls.Certificate {
	t.Helper()

	c, err := tls.X509KeyPair(id.CertPEM, id.KeyPEM)
	if err != nil {
		t.Fatalf("failed to build key pair: %v", err)
	}
	return c
}

// LeafOptions are the options of a certificate issued by a PKI.
type LeafOptions struct {
	CommonName  string
	DNSNames    []string
	IPAddresses []net.IP
	Client      bool
	Expired     bool
}

// PKI is a certificate authority living in a temporary directory.
type PKI struct {
	CA  Identity
	Dir string
}

// NewPKI creates a self-signed CA with the given common name.
func NewPKI(t *testing.T, commonName string) *PKI {
	t.Helper()

	tpl := &x509.Certificate{
		Subject:               pkix.Name{CommonName: commonName},
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}

	ca := issue(t, tpl, nil, time.Hour)
	return &PKI{CA: ca, Dir: t.TempDir()}
}

// Issue creates a leaf certificate signed by the CA. Server certificates
// without names are valid for localhost and 127.0.0.1.
func (p *PKI) Issue(t *testing.T, opts LeafOptions) Identity {
	t.Helper()

	tpl := &x509.Certificate{
		Subject:     pkix.Name{CommonName: opts.CommonName},
		DNSNames:    opts.DNSNames,
		IPAddresses: opts.IPAddresses,
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if opts.Client {
		tpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	} else if len(tpl.DNSNames) == 0 && len(tpl.IPAddresses) == 0 {
		tpl.DNSNames = []string{"localhost"}
		tpl.IPAddresses = []net.IP{net.IPv4(127, 0, 0, 1)}
	}

	validity := time.Hour
	if opts.Expired {
		validity = -time.Hour
	}

	return issue(t, tpl, &p.CA, validity)
}

// CAFile writes the CA certificate and returns its path.
func (p *PKI) CAFile(t *testing.T) string {
	t.Helper()
	return WriteFile(t, p.Dir, "ca.pem", p.CA.CertPEM)
}

// Pool returns a certificate pool containing the CA.
func (p *PKI) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(p.CA.Cert)
	return pool
}

// WriteIdentity writes the certificate and key of id with the given name and
// returns their paths.
func (p *PKI) WriteIdentity(t *testing.T, name string,
	id Identity) (certFile, keyFile string) {

	t.Helper()
	certFile = WriteFile(t, p.Dir, name+".pem", id.CertPEM)
	keyFile = WriteFile(t, p.Dir, name+".key", id.KeyPEM)
	return certFile, keyFile
}

// WriteFile writes data into dir/name and returns the path of the file.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func issue(t *testing.T, tpl *x509.Certificate, parent *Identity,
	validity time.Duration) Identity {

	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	now := time.Now()
	tpl.SerialNumber = big.NewInt(atomic.AddInt64(&serial, 1))
	tpl.NotBefore = now.Add(-time.Minute)
	tpl.NotAfter = now.Add(validity)
	if validity < 0 {
		tpl.NotBefore = now.Add(2 * validity)
	}

	signerCert, signerKey := tpl, crypto.Signer(key)
	if parent != nil {
		signerCert, signerKey = parent.Cert, parent.Key
	}

	der, err := x509.CreateCertificate(rand.Reader, tpl, signerCert,
		key.Public(), signerKey)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal key: %v", err)
	}

	return Identity{
		Cert:    cert,
		Key:     key,
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}
}
