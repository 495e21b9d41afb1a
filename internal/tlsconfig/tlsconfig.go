// Package tlsconfig builds the shared listener's TLS configuration: a
// server identity from a PEM certificate/key file pair plus a static, operator-
// supplied PEM trust store for client certificates, requested but not
// required.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// ServerConfig configures the TLS identity and trust policy for the
// adaptor's embedded HTTP(S) listener.
type ServerConfig struct {
	// CertFile/KeyFile are the server's own identity, PEM-encoded.
	CertFile string
	KeyFile  string
	// TrustStoreFile is a PEM bundle of CAs trusted for verifying client
	// certificates presented by the Appliance. Optional: if empty, client
	// certificates are still accepted (ClientAuth stays "want") but never
	// verified against a CA — VerifyPeerCertificate is skipped.
	TrustStoreFile string
}

// Build loads cfg's certificate and trust store and returns a *tls.Config
// suitable for http.Server.TLSConfig.
//
// Client certificates are requested, not required (tls.RequestClientCert):
// the document handler and SAML endpoints authenticate principals via
// cookie session and SAML assertion respectively, not mTLS, so a client
// that presents no certificate must still be allowed to complete the
// handshake. When a certificate is presented and a trust store is
// configured, it is verified against that store; an unverifiable
// certificate fails the handshake rather than being silently ignored.
func Build(cfg ServerConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("tlsconfig: load server identity: %w", err)
	}

	tlsCfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequestClientCert,
	}

	if cfg.TrustStoreFile == "" {
		return tlsCfg, nil
	}

	pool, err := loadTrustStore(cfg.TrustStoreFile)
	if err != nil {
		return nil, err
	}
	tlsCfg.ClientCAs = pool
	tlsCfg.ClientAuth = tls.VerifyClientCertIfGiven

	return tlsCfg, nil
}

func loadTrustStore(path string) (*x509.CertPool, error) {
	pemBytes, err := os.ReadFile(path) // #nosec G304 - operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("tlsconfig: read trust store %s: %w", path, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("tlsconfig: %s contains no usable certificates", path)
	}
	return pool, nil
}

// LoadCertificates parses every PEM-encoded certificate in path, for
// callers that need the raw *x509.Certificate slice rather than a
// *x509.CertPool — e.g. goxmldsig's X509CertificateStore, which validates
// XML signatures instead of TLS handshakes.
func LoadCertificates(path string) ([]*x509.Certificate, error) {
	pemBytes, err := os.ReadFile(path) // #nosec G304 - operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("tlsconfig: read trust store %s: %w", path, err)
	}

	var certs []*x509.Certificate
	rest := pemBytes
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("tlsconfig: parse certificate in %s: %w", path, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("tlsconfig: %s contains no usable certificates", path)
	}
	return certs, nil
}
