package ldap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// NetDialer opens real go-ldap connections.
type NetDialer struct {
	config DialerConfig
}

// NewDialer creates a Dialer using the given transport settings.
func NewDialer(config DialerConfig) *NetDialer {
	if config.TLSConfig == nil {
		config.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &NetDialer{config: config}
}

// Dial connects to url. The timeout bounds the TCP and TLS handshake and is then
// applied to every request on the connection. A context deadline, if earlier, wins.
func (d *NetDialer) Dial(ctx context.Context, url string, timeout time.Duration) (Conn, error) {
	endpoint, err := ParseLDAPURL(url)
	if err != nil {
		return nil, err
	}

	netDialer := &net.Dialer{Timeout: timeout}
	if deadline, ok := ctx.Deadline(); ok {
		netDialer.Deadline = deadline
	}

	opts := []ldap.DialOpt{ldap.DialWithDialer(netDialer)}
	if endpoint.UseTLS {
		tlsConfig := d.config.TLSConfig.Clone()
		if tlsConfig.ServerName == "" {
			tlsConfig.ServerName = endpoint.Host
		}
		opts = append(opts, ldap.DialWithTLSConfig(tlsConfig))
	}

	conn, err := ldap.DialURL(endpoint.URL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint.URL(), err)
	}

	conn.SetTimeout(timeout)

	return conn, nil
}
