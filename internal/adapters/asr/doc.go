// Package asr transcribes an audio file to plain text, either by calling
// an HTTP speech-to-text endpoint or by shelling out to a local CLI
// transcriber, chosen by whether asr.base_url is configured. The CLI path
// wraps an exec.CommandContext model invocation and reads its JSON output
// back from a sibling file.
package asr
