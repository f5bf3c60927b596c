package config

import (
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscode()
	c.normalizeImage()
	c.normalizeDevice()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	expand := func(value *string, fallback string) error {
		if strings.TrimSpace(*value) == "" {
			*value = fallback
		}
		expanded, err := expandPath(*value)
		if err != nil {
			return err
		}
		*value = expanded
		return nil
	}

	if err := expand(&c.Paths.WorkspaceDir, defaultWorkspaceDir); err != nil {
		return err
	}
	if err := expand(&c.Paths.CacheDir, defaultCacheDir); err != nil {
		return err
	}
	if err := expand(&c.Paths.LogDir, defaultLogDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.DeviceRoot) != "" {
		expanded, err := expandPath(c.Paths.DeviceRoot)
		if err != nil {
			return err
		}
		c.Paths.DeviceRoot = expanded
	}
	return nil
}

func (c *Config) normalizeTranscode() {
	if strings.TrimSpace(c.Transcode.FFmpegBinary) == "" {
		c.Transcode.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Transcode.FFprobeBinary) == "" {
		c.Transcode.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Transcode.Workers <= 0 {
		c.Transcode.Workers = defaultTranscodeWorkers
	}
	if c.Transcode.MaxGainDB <= 0 {
		c.Transcode.MaxGainDB = defaultMaxGainDB
	}
	if c.Transcode.TimeoutSecs <= 0 {
		c.Transcode.TimeoutSecs = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeImage() {
	if c.Image.CanvasWidth <= 0 {
		c.Image.CanvasWidth = defaultCanvasWidth
	}
	if c.Image.CanvasHeight <= 0 {
		c.Image.CanvasHeight = defaultCanvasHeight
	}
	if c.Image.CropMargin < 0 {
		c.Image.CropMargin = 0
	}
}

func (c *Config) normalizeDevice() {
	scheme := strings.ToLower(strings.TrimSpace(c.Device.CipherScheme))
	if scheme == "" {
		scheme = defaultCipherScheme
	}
	c.Device.CipherScheme = scheme
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
}
