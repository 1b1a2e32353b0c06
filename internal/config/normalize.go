package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeUpload()
	c.normalizePipeline()
	c.normalizeCache()
	c.normalizeSummarizer()
	c.normalizeAdapters()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeUpload() {
	if c.Upload.Concurrency <= 0 {
		c.Upload.Concurrency = defaultUploadConcurrency
	}
	if c.Upload.RatePerMinute <= 0 {
		c.Upload.RatePerMinute = defaultUploadRatePerMinute
	}
	if c.Upload.ChunkSizeBytes <= 0 {
		c.Upload.ChunkSizeBytes = defaultUploadChunkSizeBytes
	}
	if c.Upload.ReadTimeoutSeconds <= 0 {
		c.Upload.ReadTimeoutSeconds = defaultUploadReadTimeoutS
	}
	if c.Upload.WriteTimeoutSeconds <= 0 {
		c.Upload.WriteTimeoutSeconds = defaultUploadWriteTimeoutS
	}
	if c.Upload.MaxFileSizeBytes <= 0 {
		c.Upload.MaxFileSizeBytes = defaultUploadMaxFileSize
	}
	if c.Upload.GraceBytes < 0 {
		c.Upload.GraceBytes = defaultUploadGraceBytes
	}
	if c.Upload.TTLSeconds <= 0 {
		c.Upload.TTLSeconds = defaultUploadTTLSeconds
	}
	if c.Upload.ReapIntervalSeconds <= 0 {
		c.Upload.ReapIntervalSeconds = defaultUploadReapIntervalS
	}
	if c.Summary.RatePerMinute <= 0 {
		c.Summary.RatePerMinute = defaultSummaryRatePerMinute
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.WorkerCount <= 0 {
		c.Pipeline.WorkerCount = defaultWorkerCount
	}
	if c.Pipeline.TranscodeConcurrency <= 0 {
		c.Pipeline.TranscodeConcurrency = defaultTranscodeConcurrency
	}
	if c.Pipeline.TranscribeConcurrency <= 0 {
		c.Pipeline.TranscribeConcurrency = defaultTranscribeConcurrency
	}
	if c.Pipeline.StageWaitSeconds <= 0 {
		c.Pipeline.StageWaitSeconds = defaultStageWaitSeconds
	}
	if c.Pipeline.QueueCapacity <= 0 {
		c.Pipeline.QueueCapacity = defaultQueueCapacity
	}
	if c.URLSource.VideoMaxSizeBytes <= 0 {
		c.URLSource.VideoMaxSizeBytes = defaultVideoMaxSizeBytes
	}
	if c.URLSource.SubtitleMaxSizeBytes <= 0 {
		c.URLSource.SubtitleMaxSizeBytes = defaultSubtitleMaxSizeBytes
	}
	if c.URLSource.SubtitleDownloadTimeoutS <= 0 {
		c.URLSource.SubtitleDownloadTimeoutS = defaultSubtitleDownloadTOS
	}
	if c.URLSource.CoverageMin <= 0 {
		c.URLSource.CoverageMin = defaultCoverageMin
	}
	if c.Silence.RMSMax <= 0 {
		c.Silence.RMSMax = defaultRMSMax
	}
	if c.Silence.TokensPerMinMin <= 0 {
		c.Silence.TokensPerMinMin = defaultTokensPerMinMin
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.TTLDays <= 0 {
		c.Cache.TTLDays = defaultCacheTTLDays
	}
	if c.Cache.MaxBytes <= 0 {
		c.Cache.MaxBytes = defaultCacheMaxBytes
	}
	if c.Cache.FailedTTLHours <= 0 {
		c.Cache.FailedTTLHours = defaultFailedTTLHours
	}
	if c.Cache.SweepIntervalSeconds <= 0 {
		c.Cache.SweepIntervalSeconds = defaultCacheSweepIntervalS
	}
	if c.Cache.ProfileVersion <= 0 {
		c.Cache.ProfileVersion = defaultProfileVersion
	}
}

func (c *Config) normalizeSummarizer() {
	if c.Summarizer.ChunkSizeChars <= 0 {
		c.Summarizer.ChunkSizeChars = defaultChunkSizeChars
	}
	if c.Summarizer.ChunkOverlapChars <= 0 {
		c.Summarizer.ChunkOverlapChars = defaultChunkOverlapChars
	}
	if c.Summarizer.MinResultChars <= 0 {
		c.Summarizer.MinResultChars = defaultMinResultChars
	}
}

func (c *Config) normalizeAdapters() {
	if c.ASR.APIKey == "" {
		if value, ok := os.LookupEnv("VIDSUM_ASR_API_KEY"); ok {
			c.ASR.APIKey = value
		}
	}
	if c.ASR.TimeoutSeconds <= 0 {
		c.ASR.TimeoutSeconds = defaultASRTimeoutSeconds
	}
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("VIDSUM_LLM_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.Downloader.Binary == "" {
		c.Downloader.Binary = "yt-dlp"
	}
	if c.Downloader.TimeoutSeconds <= 0 {
		c.Downloader.TimeoutSeconds = defaultDownloaderTimeoutS
	}
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.Topic = strings.TrimSpace(c.Notifications.Topic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeoutS
	}
}
