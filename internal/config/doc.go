// Package config loads and validates vidsum's TOML configuration file,
// expanding paths and applying defaults for every subsystem: metadata
// store location, upload limits, worker pool sizing, stage concurrency
// caps, HTTP facade bind address, and the ASR/LLM/downloader adapters.
package config
