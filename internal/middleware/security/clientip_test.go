package security

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	resolver := DefaultClientIPResolver()

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{name: "direct client", remoteAddr: "203.0.113.7:5555", want: "203.0.113.7"},
		{name: "untrusted peer cannot spoof", remoteAddr: "203.0.113.7:5555", xff: "1.2.3.4", want: "203.0.113.7"},
		{name: "trusted proxy forwards", remoteAddr: "127.0.0.1:8080", xff: "198.51.100.9, 10.0.0.2", want: "198.51.100.9"},
		{name: "trusted proxy real ip", remoteAddr: "192.168.1.10:80", realIP: "198.51.100.10", want: "198.51.100.10"},
		{name: "garbage header ignored", remoteAddr: "10.1.2.3:80", xff: "not-an-ip", want: "10.1.2.3"},
		{name: "ipv6 loopback", remoteAddr: "[::1]:9000", xff: "2001:db8::1", want: "2001:db8::1"},
		{name: "no port", remoteAddr: "203.0.113.8", want: "203.0.113.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, resolver.ClientIP(req))
		})
	}
}

func TestNewClientIPResolverRejectsBadCIDR(t *testing.T) {
	_, err := NewClientIPResolver("10.0.0.0/33")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trusted proxy CIDR")
}
