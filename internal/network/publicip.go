package network

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"xrayctl/internal/constants"
)

// provider describes one public IP discovery endpoint
type provider struct {
	url   string
	parse func(body string) string
}

func defaultProviders() []provider {
	return []provider{
		{"https://1.1.1.1/cdn-cgi/trace", parseCloudflareTrace},
		{"https://api.ipify.org", parsePlain},
		{"https://ifconfig.me/ip", parsePlain},
		{"https://checkip.amazonaws.com", parsePlain},
		{"https://icanhazip.com", parsePlain},
	}
}

// Detector discovers the server's public IPv4 address from a list of
// well-known echo services
type Detector struct {
	client    *resty.Client
	providers []provider
	logger    *logrus.Logger
}

// NewDetector creates a new public IP detector
func NewDetector(logger *logrus.Logger) *Detector {
	client := resty.New().SetTimeout(constants.PublicIPTimeout)

	return &Detector{
		client:    client,
		providers: defaultProviders(),
		logger:    logger,
	}
}

// PublicIP tries each provider in order and returns the first plausible
// address, or "" when every provider fails
func (d *Detector) PublicIP(ctx context.Context) string {
	for _, p := range d.providers {
		resp, err := d.client.R().SetContext(ctx).Get(p.url)
		if err != nil || resp.StatusCode() != http.StatusOK {
			d.logger.Debugf("Public IP provider %s failed: %v", p.url, err)
			continue
		}

		if ip := p.parse(strings.TrimSpace(string(resp.Body()))); ip != "" {
			d.logger.Debugf("Detected public IP %s via %s", ip, p.url)
			return ip
		}
	}

	return ""
}

// parseCloudflareTrace picks the ip= line out of cdn-cgi/trace output
func parseCloudflareTrace(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "ip=") {
			return parsePlain(strings.TrimPrefix(line, "ip="))
		}
	}
	return ""
}

// parsePlain accepts the body itself as an address if it is a valid IPv4
func parsePlain(body string) string {
	if ip := net.ParseIP(body); ip != nil && ip.To4() != nil {
		return body
	}
	return ""
}
