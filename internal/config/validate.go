package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Absolute bounds the configurable limits must stay within.
const (
	hardMaxContentCount = 10
	hardMaxSceneCount   = 5
	hardMinDuration     = 15
	hardMaxDuration     = 60
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Schedule.ContentCron != "" {
		if _, err := cron.ParseStandard(c.Schedule.ContentCron); err != nil {
			return fmt.Errorf("schedule.content_cron: %w", err)
		}
		if c.Schedule.ContentCount > c.Content.MaxCount {
			return fmt.Errorf("schedule.content_count must be <= content.max_count (%d)", c.Content.MaxCount)
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		return errors.New("paths.socket_path must be set")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if strings.TrimSpace(c.Paths.MediaDir) == "" {
			return errors.New("paths.media_dir must be set for local storage")
		}
	case StorageS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set for s3 storage")
		}
		if c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "" {
			return errors.New("storage.access_key_id and storage.secret_access_key must be set for s3 storage")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want local or s3)", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Content.MaxCount > hardMaxContentCount {
		return fmt.Errorf("content.max_count must be <= %d", hardMaxContentCount)
	}
	if c.Content.DefaultCount > c.Content.MaxCount {
		return fmt.Errorf("content.default_count must be <= content.max_count (%d)", c.Content.MaxCount)
	}
	if c.Video.MaxSceneCount > hardMaxSceneCount {
		return fmt.Errorf("video.max_scene_count must be <= %d", hardMaxSceneCount)
	}
	if c.Video.DefaultSceneCount > c.Video.MaxSceneCount {
		return fmt.Errorf("video.default_scene_count must be <= video.max_scene_count (%d)", c.Video.MaxSceneCount)
	}
	if c.Video.MinDurationSeconds < hardMinDuration || c.Video.MaxDurationSeconds > hardMaxDuration {
		return fmt.Errorf("video duration bounds must stay within %d-%d seconds", hardMinDuration, hardMaxDuration)
	}
	if c.Video.MinDurationSeconds > c.Video.MaxDurationSeconds {
		return errors.New("video.min_duration_seconds must be <= video.max_duration_seconds")
	}
	if c.Video.DefaultDurationSeconds < c.Video.MinDurationSeconds || c.Video.DefaultDurationSeconds > c.Video.MaxDurationSeconds {
		return errors.New("video.default_duration_seconds must fall between the configured bounds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if !validLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	for stage, level := range c.Logging.StageOverrides {
		if !validLevel(level) {
			return fmt.Errorf("logging.stage_overrides[%s]: unsupported level %q", stage, level)
		}
	}
	return nil
}

func validLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
