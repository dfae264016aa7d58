package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// PageResult is the record of one fetch performed by a crawl.
type PageResult struct {
	// URL is the fetched URL as taken from the frontier.
	URL string `json:"url"`

	// Depth is the number of link hops from the seed.
	Depth int `json:"depth"`

	// StatusCode is the final HTTP status, or 0 when no response arrived.
	StatusCode int `json:"status_code"`

	// Attempts is the number of requests sent, retries included.
	Attempts int `json:"attempts"`

	// ContentType is the Content-Type header of the final response.
	ContentType string `json:"content_type,omitempty"`

	// Size is the received body size in bytes before decoding.
	Size int `json:"size"`

	// Decoded is false when the body was kept as raw bytes.
	Decoded bool `json:"decoded"`

	// LinksFound is the number of hrefs extracted from the body.
	LinksFound int `json:"links_found"`

	// LinksAccepted is the number of hrefs that passed the link pattern.
	LinksAccepted int `json:"links_accepted"`

	// LinksNew is the number of accepted links not seen before.
	LinksNew int `json:"links_new"`

	// Hash is the SHA3-256 hash of the body, empty for an empty body.
	Hash string `json:"hash,omitempty"`

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time `json:"fetched_at"`

	// Error describes a failed fetch.
	Error string `json:"error,omitempty"`
}

// ComputeHash sets Hash to the hex SHA3-256 digest of body.
func (p *PageResult) ComputeHash(body string) {
	if body == "" {
		p.Hash = ""
		return
	}
	sum := sha3.Sum256([]byte(body))
	p.Hash = hex.EncodeToString(sum[:])
}

// Failed reports whether the fetch produced no body.
func (p *PageResult) Failed() bool {
	return p.Error != ""
}

// StatusClass groups StatusCode as "2xx", "3xx", "4xx", "5xx" or "none".
func (p *PageResult) StatusClass() string {
	return StatusClass(p.StatusCode)
}

// StatusClass groups an HTTP status code by its first digit.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "none"
	}
}

// SeenURL is an entry of the seen set.
type SeenURL struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}

// BlockedURL is a URL the robots policy did not allow.
type BlockedURL struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}
