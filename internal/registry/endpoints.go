package registry

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const (
	SushiSwapBaseURL = "https://api.sushi.com/swap/v7"
	LiFiBaseURL      = "https://li.quest/v1"
	LiFiQuoteURL     = LiFiBaseURL + "/quote"
)

// SushiSwapURL is the per-chain swap endpoint.
func SushiSwapURL(chainID int64) string {
	return fmt.Sprintf("%s/%d", SushiSwapBaseURL, chainID)
}

// IsAllowedQuoteURL reports whether endpoint may be used for a quote request.
// Remote endpoints must use https; loopback hosts may use plain http.
func IsAllowedQuoteURL(endpoint string) bool {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return false
	}
	host := strings.TrimSpace(parsed.Hostname())
	if host == "" {
		return false
	}
	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	if isLoopbackHost(host) {
		return scheme == "http" || scheme == "https"
	}
	return scheme == "https"
}

func isLoopbackHost(host string) bool {
	h := strings.TrimSpace(strings.ToLower(host))
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
