package tlskit

import (
	"crypto/tls"
	"fmt"
)

// ALPN preference advertised to clients, most preferred first.
var alpnProtocols = []string{"h2", "http/1.1"}

// LoadServerConfig compiles the PEM-encoded certificate chain and private
// key into a server tls.Config. The result is immutable by convention: it
// is shared by reference and replaced wholesale on reload, never mutated.
func LoadServerConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("tlskit: load key pair: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   append([]string(nil), alpnProtocols...),
		MinVersion:   tls.VersionTLS12,
	}, nil
}
