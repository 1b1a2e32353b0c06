// Package stages wires internal/adapters/{asr,llm,downloader,subtitlefetch},
// internal/media, internal/subtitle, and internal/summarize into concrete
// pipeline.Handler implementations, and assembles them into the URL and
// local branch stage chains a jobqueue.Queue runs.
package stages
