package cluster

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// LoadTLSConfig loads the agent's node certificate and the cluster CA from
// certDir (expected layout: node.crt, node.key, ca.crt), adapted from the
// teacher's certificate-loading helpers.
func LoadTLSConfig(certDir string) (TLSConfig, error) {
	cert, err := loadCertFromFile(certDir)
	if err != nil {
		return TLSConfig{}, fmt.Errorf("cluster: load node certificate: %w", err)
	}

	caCert, err := loadCACertFromFile(certDir)
	if err != nil {
		return TLSConfig{}, fmt.Errorf("cluster: load CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(caCert)

	return TLSConfig{Cert: *cert, CAPool: pool}, nil
}

func loadCertFromFile(certDir string) (*tls.Certificate, error) {
	certPath := filepath.Join(certDir, "node.crt")
	keyPath := filepath.Join(certDir, "node.key")

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	if cert.Leaf == nil {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		cert.Leaf = leaf
	}

	return &cert, nil
}

func loadCACertFromFile(certDir string) (*x509.Certificate, error) {
	caPath := filepath.Join(certDir, "ca.crt")
	caPEM, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	block, _ := pem.Decode(caPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("failed to decode CA certificate PEM")
	}

	caCert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	return caCert, nil
}
