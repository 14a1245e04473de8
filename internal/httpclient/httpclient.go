// Package httpclient builds the outbound HTTP clients shared by the data providers and the
// Telegram notifier.
package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout applies when a caller passes a non-positive timeout.
const DefaultTimeout = 30 * time.Second

// New returns a client with its own transport, routed through proxyURL when it is set.
// An unparsable proxy is logged and ignored.
func New(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Host == "" {
			zap.L().Warn("ignoring invalid proxy url", zap.String("proxy", proxyURL), zap.Error(err))
		} else {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// WithTimeout returns a client sharing c's transport with a different overall timeout.
func WithTimeout(c *http.Client, timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: c.Transport}
}
