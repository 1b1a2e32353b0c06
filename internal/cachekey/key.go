package cachekey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

func sum(source string) string {
	digest := sha256.Sum256([]byte(source))
	return hex.EncodeToString(digest[:])
}

// ForURL computes the cache_key for a URL source. When prober is non-nil
// and resolves an identity, the key is derived from that identity rather
// than the normalized URL, so that equivalent links collapse to one entry.
// profileVersion salts the key so bumping it invalidates prior entries
// without touching source identity. trackingParams names query parameters
// stripped before normalization, so per-request tracking noise (utm_*
// and the like) never produces a distinct key for the same underlying
// source.
func ForURL(ctx context.Context, rawURL string, profileVersion int, prober Prober, trackingParams []string) string {
	version := strconv.Itoa(profileVersion)
	if prober != nil {
		if identity, ok := prober.Probe(ctx, rawURL); ok {
			return sum("url:" + identity.Extractor + ":" + identity.VideoID + ":" + version)
		}
	}
	return sum("url:" + NormalizeURL(rawURL, trackingParams) + ":" + version)
}

// ForLocal computes the cache_key for a local upload from its content hash.
func ForLocal(fileHash string, profileVersion int) string {
	return sum("file:" + fileHash + ":" + strconv.Itoa(profileVersion))
}
