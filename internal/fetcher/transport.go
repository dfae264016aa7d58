package fetcher

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// supportedProxySchemes lists the proxy URL schemes net/http can dial.
var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// parseProxies validates a scheme -> proxy URL map.
// Keys are the scheme of the target URL ("http" or "https").
func parseProxies(raw map[string]string) (map[string]*url.URL, error) {
	proxies := make(map[string]*url.URL, len(raw))
	for scheme, rawProxy := range raw {
		scheme = strings.ToLower(strings.TrimSpace(scheme))
		if scheme == "" || strings.TrimSpace(rawProxy) == "" {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(rawProxy))
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %w", ErrInvalidProxy, scheme, err)
		}
		if !supportedProxySchemes[strings.ToLower(u.Scheme)] || u.Host == "" {
			return nil, fmt.Errorf("%w for %s: %q", ErrInvalidProxy, scheme, redactProxy(u))
		}
		proxies[scheme] = u
	}
	return proxies, nil
}

// redactProxy hides proxy credentials in error messages.
func redactProxy(u *url.URL) string {
	if u.User == nil {
		return u.String()
	}
	return u.Redacted()
}

// proxyForScheme returns a Transport.Proxy function that routes a request
// through the proxy registered for the request URL's scheme, if any.
func proxyForScheme(proxies map[string]*url.URL) func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		if p, ok := proxies[req.URL.Scheme]; ok {
			return p, nil
		}
		return nil, nil
	}
}

// newTransport builds the base transport for crawl requests.
func newTransport(proxies map[string]*url.URL) *http.Transport {
	return &http.Transport{
		Proxy: proxyForScheme(proxies),
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// headerInjectingTransport wraps an http.RoundTripper to inject the crawl's
// headers, cookie and user agent into every request, redirects included.
type headerInjectingTransport struct {
	base      http.RoundTripper
	cookie    string
	headers   map[string]string
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if clone.Header.Get("Accept-Encoding") == "" {
		clone.Header.Set("Accept-Encoding", "gzip, deflate, br")
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	// The configured user agent wins over a User-Agent entry in headers.
	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	return t.base.RoundTrip(clone)
}
