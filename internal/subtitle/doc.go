// Package subtitle parses SRT, WebVTT (including the YouTube auto-caption
// variant), and ASS/SSA subtitle files into an ordered sequence of
// segments.
//
// The timestamp line-scanning idiom is shared across formats, extended to
// each format's own timestamp punctuation and to ASS/SSA's Dialogue lines.
package subtitle
