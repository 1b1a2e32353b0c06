// Package llm wraps an OpenAI-compatible chat completion endpoint for the
// summarization stage, requesting a prose completion rather than a
// structured JSON response.
package llm
