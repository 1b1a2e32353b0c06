package stages

import (
	"fmt"

	"golang.org/x/sync/semaphore"

	"vidsum/internal/adapters/asr"
	"vidsum/internal/adapters/downloader"
	"vidsum/internal/adapters/subtitlefetch"
	"vidsum/internal/bundle"
	"vidsum/internal/config"
	"vidsum/internal/metadata"
	"vidsum/internal/pipeline"
	"vidsum/internal/summarize"
)

// Builder assembles the stage chain for a pipeline.Item, dispatching on
// SourceType and, for local uploads, FileType. It implements
// jobqueue.StageBuilder via Build.
type Builder struct {
	downloader     downloader.Downloader
	subtitlefetch  subtitlefetch.Fetcher
	transcriber    asr.Transcriber
	summarizer     summarize.Summarizer
	bundles        *bundle.Store
	urlSource      config.URLSource
	silence        config.Silence
	summarizerCfg  config.Summarizer
	ffmpegBinary   string
	transcode      *semaphore.Weighted
	transcribeSema *semaphore.Weighted
}

// New builds a Builder from the pipeline's adapters, stores, and the
// queue's shared stage semaphores.
func New(
	dl downloader.Downloader,
	subFetch subtitlefetch.Fetcher,
	transcriber asr.Transcriber,
	summarizer summarize.Summarizer,
	bundles *bundle.Store,
	cfg *config.Config,
	transcode, transcribeSema *semaphore.Weighted,
) *Builder {
	return &Builder{
		downloader:     dl,
		subtitlefetch:  subFetch,
		transcriber:    transcriber,
		summarizer:     summarizer,
		bundles:        bundles,
		urlSource:      cfg.URLSource,
		silence:        cfg.Silence,
		summarizerCfg:  cfg.Summarizer,
		ffmpegBinary:   cfg.Media.FFmpegBinary,
		transcode:      transcode,
		transcribeSema: transcribeSema,
	}
}

// Build implements jobqueue.StageBuilder.
func (b *Builder) Build(item *pipeline.Item) ([]pipeline.Stage, error) {
	switch item.SourceType {
	case metadata.SourceURL:
		return b.urlStages(), nil
	case metadata.SourceLocal:
		return b.localStages(item.FileType)
	default:
		return nil, fmt.Errorf("stages: unknown source type %q", item.SourceType)
	}
}

func (b *Builder) urlStages() []pipeline.Stage {
	return []pipeline.Stage{
		{Name: "fetch_metadata", Handler: NewFetchMetadataHandler(b.downloader)},
		{Name: "subtitle_fetch", Handler: NewSubtitleFetchHandler(b.subtitlefetch, b.urlSource)},
		{Name: "download_video", Handler: NewDownloadVideoHandler(b.downloader, b.urlSource)},
		{Name: "extract_audio", Handler: NewExtractAudioHandler(b.ffmpegBinary, b.transcode)},
		{Name: "transcribe", Handler: NewTranscribeHandler(b.transcriber, b.ffmpegBinary, b.silence, b.transcribeSema)},
		{Name: "summarize", Handler: NewSummarizeHandler(b.summarizer, b.summarizerCfg)},
		{Name: "emit_bundle", Handler: NewEmitBundleHandler(b.bundles)},
	}
}

func (b *Builder) localStages(fileType metadata.FileType) ([]pipeline.Stage, error) {
	emit := pipeline.Stage{Name: "emit_bundle", Handler: NewEmitBundleHandler(b.bundles)}
	summarizeStage := pipeline.Stage{Name: "summarize", Handler: NewSummarizeHandler(b.summarizer, b.summarizerCfg)}

	switch fileType {
	case metadata.FileTypeSubtitle:
		return []pipeline.Stage{
			{Name: "subtitle_parse", Handler: NewSubtitleParseHandler(b.urlSource)},
			summarizeStage,
			emit,
		}, nil
	case metadata.FileTypeAudio:
		return []pipeline.Stage{
			{Name: "transcribe", Handler: NewTranscribeHandler(b.transcriber, b.ffmpegBinary, b.silence, b.transcribeSema)},
			summarizeStage,
			emit,
		}, nil
	case metadata.FileTypeVideo:
		return []pipeline.Stage{
			{Name: "extract_audio", Handler: NewExtractAudioHandler(b.ffmpegBinary, b.transcode)},
			{Name: "transcribe", Handler: NewTranscribeHandler(b.transcriber, b.ffmpegBinary, b.silence, b.transcribeSema)},
			summarizeStage,
			emit,
		}, nil
	default:
		return nil, fmt.Errorf("stages: unknown local file type %q", fileType)
	}
}
