// Package subtitlefetch downloads a source's advertised subtitle track via
// yt-dlp's --write-subs/--write-auto-subs flags, grounded on the same
// services/drapto CLI-wrapping idiom as internal/adapters/downloader.
package subtitlefetch
