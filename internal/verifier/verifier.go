package verifier

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"xrayctl/internal/constants"
)

// DomainVerifier decides whether a hostname is suitable as a TLS masking
// (SNI) target. It checks DNS resolution, TLS 1.2/1.3 support and HTTP/2
// ALPN negotiation. Stateless and safe to call concurrently.
type DomainVerifier struct {
	logger *logrus.Logger
}

// New creates a new domain verifier
func New(logger *logrus.Logger) *DomainVerifier {
	return &DomainVerifier{
		logger: logger,
	}
}

// ExtractHostname returns the host component of a URL or bare domain
// string, stripping scheme, port and path
func (v *DomainVerifier) ExtractHostname(input string) string {
	candidate := input
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Hostname() == "" {
		return input
	}
	return parsed.Hostname()
}

// Verify checks domain suitability for Reality masking. It resolves the
// hostname, rejects addresses that would cause a routing loop (the server's
// own public IP) or point at loopback, then performs a full TLS handshake
// on port 443 offering h2 and http/1.1, requiring TLS 1.2 or 1.3 and a
// negotiated h2.
//
// The boolean is the verdict; the message describes either the failure or
// the negotiated parameters.
func (v *DomainVerifier) Verify(domain string, timeout time.Duration, forbiddenIP string) (bool, string) {
	hostname := v.ExtractHostname(domain)

	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		return false, fmt.Sprintf("DNS resolution failed for '%s'", hostname)
	}
	targetIP := addrs[0]
	v.logger.Debugf("Resolved %s to %s", hostname, targetIP)

	if forbiddenIP != "" && targetIP == forbiddenIP {
		return false, fmt.Sprintf("Domain resolves to this server's IP (%s). This would cause a routing loop.", targetIP)
	}
	if parsed := net.ParseIP(targetIP); parsed != nil && (parsed.IsLoopback() || parsed.IsUnspecified()) {
		return false, "Domain resolves to a local/loopback address."
	}

	addr := net.JoinHostPort(hostname, strconv.Itoa(constants.TLSPort))
	rawConn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return false, "Connection timed out (port 443 unreachable)."
		}
		return false, fmt.Sprintf("Network error: %v", err)
	}
	defer rawConn.Close()
	rawConn.SetDeadline(time.Now().Add(timeout))

	conn := tls.Client(rawConn, &tls.Config{
		ServerName: hostname,
		NextProtos: []string{"h2", "http/1.1"},
	})
	if err := conn.Handshake(); err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return false, "Connection timed out (port 443 unreachable)."
		}
		return false, fmt.Sprintf("TLS handshake failed: %v", err)
	}

	state := conn.ConnectionState()
	version := tls.VersionName(state.Version)

	if state.Version != tls.VersionTLS12 && state.Version != tls.VersionTLS13 {
		return false, fmt.Sprintf("Unsupported TLS version: %s. Reality requires TLS 1.3 or 1.2.", version)
	}
	if state.NegotiatedProtocol != "h2" {
		return false, fmt.Sprintf("HTTP/2 not supported (ALPN: %q). Browsers expect h2 for modern sites.", state.NegotiatedProtocol)
	}

	return true, fmt.Sprintf("Compatible! IP: %s | Proto: %s | ALPN: %s", targetIP, version, state.NegotiatedProtocol)
}
