package ldap

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is a parsed directory server address.
type Endpoint struct {
	Host   string
	Port   int
	UseTLS bool
}

// URL converts the endpoint back to an LDAP URL.
func (e *Endpoint) URL() string {
	scheme := ProtocolLDAP
	if e.UseTLS {
		scheme = ProtocolLDAPS
	}

	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(e.Host, strconv.Itoa(e.Port)))
}

// ParseLDAPURL parses an ldap:// or ldaps:// URL of the form scheme://host:port.
// A trailing path is ignored.
func ParseLDAPURL(url string) (*Endpoint, error) {
	if url == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	var rest string
	var useTLS bool

	switch {
	case strings.HasPrefix(url, "ldaps://"):
		useTLS = true
		rest = strings.TrimPrefix(url, "ldaps://")
	case strings.HasPrefix(url, "ldap://"):
		rest = strings.TrimPrefix(url, "ldap://")
	default:
		return nil, fmt.Errorf("unsupported scheme, must be ldap:// or ldaps://")
	}

	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}

	host, portStr, err := net.SplitHostPort(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", rest, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port number: %q", portStr)
	}

	endpoint := &Endpoint{
		Host:   host,
		Port:   port,
		UseTLS: useTLS,
	}

	return endpoint, endpoint.validate()
}

func (e *Endpoint) validate() error {
	if e.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", e.Port)
	}

	return nil
}
