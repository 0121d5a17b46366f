package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ProxyTrust decides when forwarding headers may name the client.
type ProxyTrust struct {
	networks []*net.IPNet
}

// DefaultProxyTrust trusts loopback and private networks.
func DefaultProxyTrust() *ProxyTrust {
	p := &ProxyTrust{}
	for _, cidr := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		if err := p.Add(cidr); err != nil {
			panic(err)
		}
	}
	return p
}

// Add trusts another proxy network.
func (p *ProxyTrust) Add(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	p.networks = append(p.networks, network)
	return nil
}

// ClientIP returns the direct peer address, or the first valid forwarded
// address when the peer is a trusted proxy.
func (p *ProxyTrust) ClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !p.trusted(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (p *ProxyTrust) trusted(ip net.IP) bool {
	for _, network := range p.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
