package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHost(t *testing.T) {
	tests := map[string]string{
		"Demo-Store.Example.App:3000": "demo-store.example.app",
		"shop.example.com.":           "shop.example.com",
		"shop.example.com, proxy.lan": "shop.example.com",
		"  SHOP.example.com  ":        "shop.example.com",
		"[::1]:8080":                  "::1",
		"":                            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHost(in), "NormalizeHost(%q)", in)
	}
}

func TestExtractSubdomain(t *testing.T) {
	tests := []struct {
		host  string
		label string
		ok    bool
	}{
		{"demo-store.example.app", "demo-store", true},
		{"Demo-Store.example.app:3000", "demo-store", true},
		{"example.app", "", false},
		{"www.example.app", "", false},
		{"a.b.example.app", "", false},
		{"shop.example.com", "", false},
		{"badexample.app", "", false},
	}
	for _, tt := range tests {
		label, ok := ExtractSubdomain(tt.host, "example.app")
		assert.Equal(t, tt.ok, ok, tt.host)
		assert.Equal(t, tt.label, label, tt.host)
	}
}

func TestPlatformHosts(t *testing.T) {
	assert.True(t, IsPlatformRoot("example.app", "example.app"))
	assert.True(t, IsPlatformRoot("WWW.example.app:443", "example.app"))
	assert.False(t, IsPlatformRoot("demo.example.app", "example.app"))

	assert.True(t, IsPlatformHost("demo.example.app", "example.app"))
	assert.False(t, IsPlatformHost("example.app.evil.com", "example.app"))
}

func TestValidateCustomHostname(t *testing.T) {
	host, err := ValidateCustomHostname("Shop.Example.COM.", "example.app")
	assert.NoError(t, err)
	assert.Equal(t, "shop.example.com", host)

	for _, bad := range []string{"", "localhost", "-shop.example.com", "shop..example.com", "sh_op.example.com"} {
		_, err := ValidateCustomHostname(bad, "example.app")
		assert.ErrorIs(t, err, ErrInvalidHostname, bad)
	}

	_, err = ValidateCustomHostname("demo.example.app", "example.app")
	assert.ErrorIs(t, err, ErrPlatformHostname)
}
