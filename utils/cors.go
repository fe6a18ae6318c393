package utils

import (
	"net"
	"net/url"
	"strings"
)

// IsAllowedOrigin reports whether an Origin header belongs to the local
// network. The frontend is served over the LAN, so localhost, private and
// link-local addresses, mDNS .local names, and bare single-label hostnames
// are trusted; public internet origins are refused.
func IsAllowedOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()

	if host == "localhost" || strings.HasSuffix(host, ".local") {
		return true
	}
	// No dots means a LAN hostname.
	if !strings.Contains(host, ".") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
