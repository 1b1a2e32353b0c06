package cachekey

import (
	"context"
	"testing"
)

type fakeProber struct {
	identity Identity
	ok       bool
}

func (f fakeProber) Probe(ctx context.Context, rawURL string) (Identity, bool) {
	return f.identity, f.ok
}

func TestForURLUsesProbedIdentityWhenAvailable(t *testing.T) {
	prober := fakeProber{identity: Identity{Extractor: "youtube", VideoID: "abc123"}, ok: true}
	got := ForURL(context.Background(), "https://youtu.be/abc123", 1, prober, nil)
	want := sum("url:youtube:abc123:1")
	if got != want {
		t.Fatalf("ForURL() = %s, want %s", got, want)
	}
}

func TestForURLFallsBackToNormalizedURL(t *testing.T) {
	prober := fakeProber{ok: false}
	got := ForURL(context.Background(), "HTTP://Example.com/video?b=2&a=1", 1, prober, nil)
	want := sum("url:" + NormalizeURL("HTTP://Example.com/video?b=2&a=1", nil) + ":1")
	if got != want {
		t.Fatalf("ForURL() = %s, want %s", got, want)
	}
}

func TestForURLWithNilProber(t *testing.T) {
	got := ForURL(context.Background(), "https://example.com/video", 1, nil, nil)
	want := sum("url:" + NormalizeURL("https://example.com/video", nil) + ":1")
	if got != want {
		t.Fatalf("ForURL() = %s, want %s", got, want)
	}
}

func TestForURLChangesWithProfileVersion(t *testing.T) {
	a := ForURL(context.Background(), "https://example.com/video", 1, nil, nil)
	b := ForURL(context.Background(), "https://example.com/video", 2, nil, nil)
	if a == b {
		t.Fatal("ForURL() should differ across profile versions")
	}
}

func TestForURLStripsConfiguredTrackingParamsBeforeHashing(t *testing.T) {
	tracking := []string{"utm_source", "utm_medium"}
	a := ForURL(context.Background(), "https://example.com/video?utm_source=newsletter&utm_medium=email", 1, nil, tracking)
	b := ForURL(context.Background(), "https://example.com/video", 1, nil, tracking)
	if a != b {
		t.Fatalf("ForURL() = %s, want %s (tracking params should not change the key)", a, b)
	}
}

func TestForURLKeepsUnlistedQueryParamsSignificant(t *testing.T) {
	tracking := []string{"utm_source"}
	a := ForURL(context.Background(), "https://example.com/video?v=abc", 1, nil, tracking)
	b := ForURL(context.Background(), "https://example.com/video?v=xyz", 1, nil, tracking)
	if a == b {
		t.Fatal("ForURL() should still distinguish sources by non-tracking query parameters")
	}
}

func TestNormalizeURLSortsQueryAndUpgradesScheme(t *testing.T) {
	got := NormalizeURL("http://Example.com/path/?b=2&a=1", nil)
	want := "https://example.com/path?a=1&b=2"
	if got != want {
		t.Fatalf("NormalizeURL() = %s, want %s", got, want)
	}
}

func TestNormalizeURLDropsFragment(t *testing.T) {
	got := NormalizeURL("https://example.com/path#section", nil)
	if got != "https://example.com/path" {
		t.Fatalf("NormalizeURL() = %s, want no fragment", got)
	}
}

func TestNormalizeURLStripsListedTrackingParams(t *testing.T) {
	got := NormalizeURL("https://example.com/watch?v=abc&utm_source=x&utm_campaign=y", []string{"utm_source", "utm_campaign"})
	want := "https://example.com/watch?v=abc"
	if got != want {
		t.Fatalf("NormalizeURL() = %s, want %s", got, want)
	}
}

func TestForLocalIsDeterministic(t *testing.T) {
	a := ForLocal("deadbeef", 1)
	b := ForLocal("deadbeef", 1)
	if a != b {
		t.Fatalf("ForLocal() not deterministic: %s != %s", a, b)
	}
	if a == ForLocal("cafebabe", 1) {
		t.Fatal("ForLocal() should differ for different hashes")
	}
	if a == ForLocal("deadbeef", 2) {
		t.Fatal("ForLocal() should differ across profile versions")
	}
}
