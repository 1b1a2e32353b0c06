// Package downloader resolves video metadata and fetches the underlying
// media for a source URL by shelling out to yt-dlp, using the same
// command-wrapping idiom and exec.CommandContext-override testing pattern
// already used by internal/cachekey.Prober.
package downloader
