package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds directories and the HTTP bind address.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	APIBind string `toml:"api_bind"`
}

// Upload controls the streaming upload store.
type Upload struct {
	Concurrency          int   `toml:"concurrency"`
	RatePerMinute        int   `toml:"rate_per_minute"`
	ChunkSizeBytes       int   `toml:"chunk_size_bytes"`
	ReadTimeoutSeconds   int   `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds  int   `toml:"write_timeout_seconds"`
	MaxFileSizeBytes     int64 `toml:"max_file_size_bytes"`
	GraceBytes           int64 `toml:"content_length_grace_bytes"`
	TTLSeconds           int   `toml:"ttl_seconds"`
	ReapIntervalSeconds  int   `toml:"reap_interval_seconds"`
}

// Summary controls the boundary's summary endpoint rate limiting.
type Summary struct {
	RatePerMinute int `toml:"rate_per_minute"`
}

// Pipeline controls worker pool sizing and per-stage concurrency caps.
type Pipeline struct {
	WorkerCount          int `toml:"worker_count"`
	TranscodeConcurrency int `toml:"transcode_concurrency"`
	TranscribeConcurrency int `toml:"transcribe_concurrency"`
	StageWaitSeconds     int `toml:"stage_wait_seconds"`
	QueueCapacity        int `toml:"queue_capacity"`
}

// URLSource bounds remote fetch behavior.
type URLSource struct {
	VideoMaxSizeBytes         int64    `toml:"video_max_size_bytes"`
	SubtitleMaxSizeBytes      int64    `toml:"subtitle_max_size_bytes"`
	SubtitleDownloadTimeoutS  int      `toml:"subtitle_download_timeout_seconds"`
	CoverageMin               float64  `toml:"coverage_min"`
	TrackingQueryParams       []string `toml:"tracking_query_params"`
}

// Silence controls the ASR-transcript silence heuristic.
type Silence struct {
	RMSMax           float64 `toml:"rms_max"`
	TokensPerMinMin  float64 `toml:"tokens_per_min_min"`
}

// Cache controls GC policy and the cache-key salt.
type Cache struct {
	TTLDays              int   `toml:"ttl_days"`
	MaxBytes             int64 `toml:"max_bytes"`
	FailedTTLHours       int   `toml:"failed_ttl_hours"`
	SweepIntervalSeconds int   `toml:"sweep_interval_seconds"`
	ProfileVersion       int   `toml:"profile_version"`
}

// Summarizer controls chunked summarization.
type Summarizer struct {
	ChunkSizeChars    int `toml:"chunk_size_chars"`
	ChunkOverlapChars int `toml:"chunk_overlap_chars"`
	MinResultChars    int `toml:"min_result_chars"`
}

// ASR configures the speech-recognition adapter.
type ASR struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM configures the summarizing large-language-model adapter.
type LLM struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Downloader configures the video/subtitle fetch adapter.
type Downloader struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Media configures the ffmpeg wrapper used for audio extraction and
// silence detection.
type Media struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
}

// Logging controls log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications configures the optional ntfy push-notification sink for
// job completion/failure events. Empty Topic disables it.
type Notifications struct {
	Topic          string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"ntfy_request_timeout_seconds"`
}

// Config encapsulates all vidsum configuration values.
//
// Configuration sections by subsystem:
//   - Paths: work directory and HTTP bind address
//   - Upload: streaming upload store limits and TTL
//   - Summary: summary-endpoint rate limiting
//   - Pipeline: worker pool and stage concurrency caps
//   - URLSource: remote fetch bounds and subtitle coverage threshold
//   - Silence: ASR-transcript silence heuristic thresholds
//   - Cache: GC policy and cache-key profile salt
//   - Summarizer: chunking parameters for long transcripts
//   - ASR / LLM / Downloader: external adapter connection settings
//   - Media: ffmpeg binary used for audio extraction and silence detection
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Upload     Upload     `toml:"upload"`
	Summary    Summary    `toml:"summary"`
	Pipeline   Pipeline   `toml:"pipeline"`
	URLSource  URLSource  `toml:"url_source"`
	Silence    Silence    `toml:"silence"`
	Cache      Cache      `toml:"cache"`
	Summarizer Summarizer `toml:"summarizer"`
	ASR        ASR        `toml:"asr"`
	LLM        LLM        `toml:"llm"`
	Downloader    Downloader    `toml:"downloader"`
	Media         Media         `toml:"media"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vidsum/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/vidsum/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidsum.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work directory tree required for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.WorkDir,
		filepath.Join(c.Paths.WorkDir, "uploads"),
		filepath.Join(c.Paths.WorkDir, "cache"),
		filepath.Join(c.Paths.WorkDir, "tmp"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
