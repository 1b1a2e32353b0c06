package pipeline

import (
	"vidsum/internal/metadata"
	"vidsum/internal/subtitle"
)

// Item is the typed context threaded through every stage: normalized
// source identity, available file paths, ASR data, duration, validation
// metrics, and eventually the summary text.
type Item struct {
	JobID      string
	CacheKey   string
	SourceType metadata.SourceType
	SourceRef  string
	SourceName string

	// StagingDir is the per-job directory under tmp/<job_id> (internal/bundle.Stage).
	StagingDir string

	// Populated as the URL/local branches progress.
	VideoPath      string
	AudioPath      string
	SubtitlePath   string
	Segments       []subtitle.Segment
	DurationMS     int64
	DurationKnown  bool
	SubtitlesValid bool
	IsSilent       bool
	Transcript     string
	SummaryText    string

	// SubtitlesAdvertised reports whether the source advertised subtitles
	// during metadata fetch (URL branch step 1).
	SubtitlesAdvertised bool

	// FileType drives the local branch's dispatch.
	FileType metadata.FileType

	ProgressStage   string
	ProgressMessage string
}

// Health reports whether a stage's external dependencies are reachable.
type Health struct {
	Healthy bool
	Detail  string
}
