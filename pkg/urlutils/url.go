// Package urlutils provides URL normalization and domain helpers.
package urlutils

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// IsValidURL checks if a URL is valid
func IsValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// NormalizeURL turns user input into the canonical form submitted for scraping.
// A missing scheme defaults to https, the host is lowercased and converted to
// its ASCII (punycode) form, and the fragment is dropped.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		u.Scheme = strings.ToLower(u.Scheme)
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	if net.ParseIP(hostname) == nil {
		ascii, err := idna.Lookup.ToASCII(hostname)
		if err != nil {
			return "", fmt.Errorf("invalid host %q: %w", hostname, err)
		}
		hostname = ascii
	}

	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(hostname, port)
	} else {
		u.Host = hostname
	}

	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// RegistrableDomain returns the eTLD+1 of a URL (e.g. blog.example.co.uk -> example.co.uk).
// Hosts without a public suffix (localhost, IPs) are returned as is.
func RegistrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	if net.ParseIP(host) != nil {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
