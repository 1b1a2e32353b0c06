package config

import "errors"

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateURLSource(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.WorkerCount < 1 {
		return errors.New("pipeline.worker_count must be at least 1")
	}
	if c.Pipeline.TranscodeConcurrency < 1 {
		return errors.New("pipeline.transcode_concurrency must be at least 1")
	}
	if c.Pipeline.TranscribeConcurrency < 1 {
		return errors.New("pipeline.transcribe_concurrency must be at least 1")
	}
	if c.Upload.Concurrency < 1 {
		return errors.New("upload.concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateURLSource() error {
	if c.URLSource.CoverageMin < 0 || c.URLSource.CoverageMin > 1 {
		return errors.New("url_source.coverage_min must be between 0 and 1")
	}
	if c.Cache.ProfileVersion < 1 {
		return errors.New("cache.profile_version must be at least 1")
	}
	return nil
}
