package cachekey

import (
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL lowercases the scheme and host, upgrades http to https,
// strips any query parameter named in trackingParams, sorts the remaining
// query parameters, strips the fragment, and drops a trailing slash from
// any path deeper than root.
func NormalizeURL(raw string, trackingParams []string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "http" {
		scheme = "https"
	}
	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	if parsed.RawQuery != "" {
		values := parsed.Query()
		for _, tracking := range trackingParams {
			values.Del(tracking)
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			vals := values[k]
			sort.Strings(vals)
			for j, v := range vals {
				if i > 0 || j > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		parsed.RawQuery = b.String()
	}

	return parsed.String()
}
