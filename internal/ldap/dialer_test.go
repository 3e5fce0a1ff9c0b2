package ldap

import (
	"crypto/tls"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDialer_DefaultTLSConfig(t *testing.T) {
	d := NewDialer(DialerConfig{})
	require.NotNil(t, d.config.TLSConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), d.config.TLSConfig.MinVersion)

	custom := &tls.Config{InsecureSkipVerify: true} //nolint:gosec // test only
	assert.Same(t, custom, NewDialer(DialerConfig{TLSConfig: custom}).config.TLSConfig)
}

func TestNetDialer_InvalidURL(t *testing.T) {
	_, err := NewDialer(DialerConfig{}).Dial(t.Context(), "http://localhost:389", time.Second)
	assert.Error(t, err)
}

func TestNetDialer_ConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	_, err = NewDialer(DialerConfig{}).Dial(t.Context(), "ldap://"+addr, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to ldap://"+addr)
}
