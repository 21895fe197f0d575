package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// EdgeTLS builds the *tls.Config for the edge device client.
// Returns nil, nil when no TLS option is set and system defaults apply.
func (c *Config) EdgeTLS() (*tls.Config, error) {
	e := c.Edge
	if e.CACert == "" && e.ClientCert == "" && e.ClientKey == "" && !e.InsecureSkipVerify {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: e.InsecureSkipVerify, //nolint:gosec // opt-in for lab devices with self-signed certs
	}

	if e.ClientCert != "" || e.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(e.ClientCert, e.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load edge client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if e.CACert != "" {
		caPEM, err := os.ReadFile(e.CACert)
		if err != nil {
			return nil, fmt.Errorf("read edge CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse edge CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}
