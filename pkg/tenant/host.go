package tenant

import (
	"errors"
	"net"
	"strings"
)

// NormalizeHost lowercases a Host header value and strips the port, a
// trailing dot and any forwarded-list tail, so it can be compared against
// stored hostnames.
func NormalizeHost(host string) string {
	if i := strings.IndexByte(host, ','); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}

	return strings.TrimSuffix(host, ".")
}

// ExtractSubdomain returns the store label of a platform subdomain:
// "demo-store.example.app:3000" yields "demo-store". The www label, nested
// labels, the bare base domain and foreign hosts are not subdomains.
func ExtractSubdomain(host, baseDomain string) (string, bool) {
	host = NormalizeHost(host)
	base := NormalizeHost(baseDomain)
	if host == "" || base == "" {
		return "", false
	}

	suffix := "." + base
	if !strings.HasSuffix(host, suffix) {
		return "", false
	}
	label := strings.TrimSuffix(host, suffix)
	if label == "" || label == "www" || strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}

// IsPlatformRoot reports whether host is the bare base domain or its www
// alias. Those hosts serve the platform itself and never a store.
func IsPlatformRoot(host, baseDomain string) bool {
	host = NormalizeHost(host)
	base := NormalizeHost(baseDomain)
	return host == base || host == "www."+base
}

// IsPlatformHost reports whether host is the base domain or any name below it.
func IsPlatformHost(host, baseDomain string) bool {
	host = NormalizeHost(host)
	base := NormalizeHost(baseDomain)
	return host == base || strings.HasSuffix(host, "."+base)
}

var (
	ErrInvalidHostname  = errors.New("invalid hostname")
	ErrPlatformHostname = errors.New("hostname belongs to the platform domain")
)

// ValidateCustomHostname normalizes a hostname submitted as a custom store
// domain and rejects anything under the platform base domain.
func ValidateCustomHostname(host, baseDomain string) (string, error) {
	host = NormalizeHost(host)
	if host == "" || len(host) > 253 || !strings.Contains(host, ".") {
		return "", ErrInvalidHostname
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return "", ErrInvalidHostname
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' {
				return "", ErrInvalidHostname
			}
		}
	}
	if IsPlatformHost(host, baseDomain) {
		return "", ErrPlatformHostname
	}
	return host, nil
}
