package config

import (
	"maps"
	"time"
)

// SiteConfig holds crawl settings for one site, keyed by host[:port] in
// the configuration file. Pointer fields distinguish "unset" from zero so
// that a site can set depth: 0 or delay: 0s.
type SiteConfig struct {
	// Headers are added to every request to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Cookie is a raw Cookie header value.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// UserAgent replaces the User-Agent header and robots.txt agent.
	UserAgent string `yaml:"user_agent,omitempty"`

	// LinkPattern overrides the link acceptance pattern.
	LinkPattern string `yaml:"link_pattern,omitempty"`

	// Depth overrides the maximum crawl depth.
	Depth *int `yaml:"depth,omitempty"`

	// MaxURLs overrides the fetch limit.
	MaxURLs *int `yaml:"max_urls,omitempty"`

	// Delay overrides the politeness delay (e.g. "2s").
	Delay *time.Duration `yaml:"delay,omitempty"`

	// Retries overrides the 5xx retry budget.
	Retries *int `yaml:"retries,omitempty"`

	// Proxy maps a scheme (http, https) to a proxy URL.
	Proxy map[string]string `yaml:"proxy,omitempty"`
}

// File represents the structure of the .linkcrawler configuration file.
type File struct {
	// Sites maps host[:port] to site-specific settings (e.g. "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for host with the site block laid
// over the defaults. Maps are merged key by key.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)
	result.Proxy = maps.Clone(cf.Defaults.Proxy)

	site, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.LinkPattern != "" {
		result.LinkPattern = site.LinkPattern
	}
	if site.Depth != nil {
		result.Depth = site.Depth
	}
	if site.MaxURLs != nil {
		result.MaxURLs = site.MaxURLs
	}
	if site.Delay != nil {
		result.Delay = site.Delay
	}
	if site.Retries != nil {
		result.Retries = site.Retries
	}
	result.Headers = mergeMap(result.Headers, site.Headers)
	result.Proxy = mergeMap(result.Proxy, site.Proxy)

	return result
}

func mergeMap(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	maps.Copy(dst, src)
	return dst
}
