// Package pipeline runs the stage sequence that turns a cache job into a
// summary: fetch metadata, try subtitles, fall back to download/extract/
// transcribe, summarize, and emit a bundle.
//
// Stages implement the Handler contract (Prepare/Execute/HealthCheck), and
// Run applies uniform transition and structured-logging semantics around
// each one, composed into the URL and local-upload branches.
package pipeline
