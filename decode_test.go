// File: lixenwraith/layerconf/decode_test.go
package layerconf

import (
	"net"
	"net/netip"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type networkSettings struct {
	Bind     net.IP        `yaml:"bind"`
	Allow    net.IPNet     `yaml:"allow"`
	Deny     *net.IPNet    `yaml:"deny"`
	Peer     netip.Addr    `yaml:"peer"`
	Subnet   netip.Prefix  `yaml:"subnet"`
	Endpoint url.URL       `yaml:"endpoint"`
	Proxy    *url.URL      `yaml:"proxy"`
	Timeout  time.Duration `yaml:"timeout"`
	Since    time.Time     `yaml:"since"`
	Hosts    []string      `yaml:"hosts"`
}

func TestDecodeInto(t *testing.T) {
	t.Run("NetworkAndTimeTypes", func(t *testing.T) {
		var got networkSettings
		err := decodeInto(map[string]any{
			"bind":     "::1",
			"allow":    "10.0.0.0/8",
			"deny":     "192.168.0.0/16",
			"peer":     "192.0.2.7",
			"subnet":   "2001:db8::/32",
			"endpoint": "https://api.example.com/v1",
			"proxy":    "http://proxy:3128",
			"timeout":  "250ms",
			"since":    "2024-05-01T10:00:00Z",
			"hosts":    "a,b,c",
		}, &got, "yaml", false)
		require.NoError(t, err)

		assert.Equal(t, "::1", got.Bind.String())
		assert.Equal(t, "10.0.0.0/8", got.Allow.String())
		require.NotNil(t, got.Deny)
		assert.Equal(t, "192.168.0.0/16", got.Deny.String())
		assert.Equal(t, netip.MustParseAddr("192.0.2.7"), got.Peer)
		assert.Equal(t, netip.MustParsePrefix("2001:db8::/32"), got.Subnet)
		assert.Equal(t, "api.example.com", got.Endpoint.Host)
		require.NotNil(t, got.Proxy)
		assert.Equal(t, "proxy:3128", got.Proxy.Host)
		assert.Equal(t, 250*time.Millisecond, got.Timeout)
		assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), got.Since)
		assert.Equal(t, []string{"a", "b", "c"}, got.Hosts)
	})

	t.Run("InvalidValues", func(t *testing.T) {
		tests := map[string]any{
			"bind":   "not-an-ip",
			"allow":  "10.0.0.0/99",
			"peer":   "300.1.1.1",
			"subnet": strings.Repeat("1", 60),
		}
		for field, value := range tests {
			var got networkSettings
			err := decodeInto(map[string]any{field: value}, &got, "yaml", false)
			assert.Error(t, err, field)
		}
	})

	t.Run("KeepsExistingValues", func(t *testing.T) {
		got := networkSettings{Timeout: time.Second, Hosts: []string{"x"}}
		require.NoError(t, decodeInto(map[string]any{"bind": "127.0.0.1"}, &got, "yaml", false))
		assert.Equal(t, time.Second, got.Timeout)
		assert.Equal(t, []string{"x"}, got.Hosts)
	})

	t.Run("EmbeddedStructsReadSameLevel", func(t *testing.T) {
		var got quotaSettings
		require.NoError(t, decodeInto(map[string]any{
			"name":   "api",
			"burst":  int64(2),
			"quotas": map[string]any{"a": int64(3)},
		}, &got, "yaml", true))
		assert.Equal(t, "api", got.Name)
		assert.Equal(t, 2, got.Burst)
		assert.Equal(t, map[string]int{"a": 3}, got.Quotas)
	})

	t.Run("RejectsNonPointer", func(t *testing.T) {
		assert.Error(t, decodeInto(map[string]any{}, networkSettings{}, "yaml", false))
		var nilPtr *networkSettings
		assert.Error(t, decodeInto(map[string]any{}, nilPtr, "yaml", false))
	})
}
