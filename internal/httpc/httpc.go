package httpc

import (
	"crypto/tls"

	"github.com/go-resty/resty/v2"
)

type Httpc struct {
	TlsConfig *tls.Config
}

// New returns a resty.Client configured according to the receiver's TLS settings.
// Defaults: MinVersion TLS1.2 when MinVersion is zero.
func (h *Httpc) New() *resty.Client {
	c := resty.New()
	cfg := h.TlsConfig
	if cfg == nil {
		return c
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	c.SetTLSClientConfig(cfg)
	return c
}

// Insecure returns a client that accepts the gateway's self-signed
// certificate. The target service terminates TLS with a locally generated
// cert, so verification is expected to fail against the system roots.
func Insecure() *resty.Client {
	// #nosec G402 -- the probed gateway uses a self-signed certificate
	h := &Httpc{TlsConfig: &tls.Config{InsecureSkipVerify: true, MinVersion: tls.VersionTLS12}}
	return h.New()
}
