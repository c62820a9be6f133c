package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeGemini()
	c.normalizeStorage()
	c.normalizePublisher()
	c.normalizeContent()
	c.normalizeVideo()
	c.normalizeWorkflow()
	c.Events.WebsocketBind = strings.TrimSpace(c.Events.WebsocketBind)
	c.Events.MetricsBind = strings.TrimSpace(c.Events.MetricsBind)
	c.Events.Token = strings.TrimSpace(c.Events.Token)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	c.Schedule.ContentCron = strings.TrimSpace(c.Schedule.ContentCron)
	if c.Schedule.ContentCount <= 0 {
		c.Schedule.ContentCount = defaultScheduleContentCount
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = filepath.Join(c.Paths.DataDir, "media")
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.DataDir, defaultSocketName)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = envFallback(c.LLM.APIKey, envLLMAPIKey)
	c.LLM.BaseURL = stringDefault(c.LLM.BaseURL, defaultLLMBaseURL)
	c.LLM.Model = stringDefault(c.LLM.Model, defaultLLMModel)
	c.LLM.Referer = stringDefault(c.LLM.Referer, defaultLLMReferer)
	c.LLM.Title = stringDefault(c.LLM.Title, defaultLLMTitle)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = envFallback(c.Gemini.APIKey, envGeminiAPIKey)
	c.Gemini.ImageModel = stringDefault(c.Gemini.ImageModel, defaultGeminiImageModel)
	c.Gemini.VideoModel = stringDefault(c.Gemini.VideoModel, defaultGeminiVideoModel)
	c.Gemini.AspectRatio = stringDefault(c.Gemini.AspectRatio, defaultGeminiAspectRatio)
	if c.Gemini.PollIntervalSeconds <= 0 {
		c.Gemini.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Gemini.PollMaxAttempts <= 0 {
		c.Gemini.PollMaxAttempts = defaultPollMaxAttempts
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(stringDefault(c.Storage.Backend, StorageLocal))
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	c.Storage.Region = stringDefault(c.Storage.Region, defaultStorageRegion)
	c.Storage.AccessKeyID = envFallback(c.Storage.AccessKeyID, envStorageAccessKeyID)
	c.Storage.SecretAccessKey = envFallback(c.Storage.SecretAccessKey, envStorageSecretAccessKey)
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
}

func (c *Config) normalizePublisher() {
	c.Publisher.Token = envFallback(c.Publisher.Token, envPublisherToken)
	c.Publisher.BaseURL = strings.TrimRight(stringDefault(c.Publisher.BaseURL, defaultPublisherBaseURL), "/")
	c.Publisher.Profile = stringDefault(c.Publisher.Profile, defaultPublisherProfile)
	if c.Publisher.TimeoutSeconds <= 0 {
		c.Publisher.TimeoutSeconds = defaultPublisherTimeout
	}
	if c.Publisher.RequestsPerMinute < 0 {
		c.Publisher.RequestsPerMinute = 0
	}
}

func (c *Config) normalizeContent() {
	if c.Content.MaxCount <= 0 {
		c.Content.MaxCount = defaultContentMaxCount
	}
	if c.Content.DefaultCount <= 0 {
		c.Content.DefaultCount = defaultContentCount
	}
	c.Content.Niches = cleanList(c.Content.Niches)
	if len(c.Content.Niches) == 0 {
		c.Content.Niches = append([]string(nil), DefaultNiches...)
	}
	c.Content.Hashtags = cleanList(c.Content.Hashtags)
	if len(c.Content.Hashtags) == 0 {
		c.Content.Hashtags = []string{defaultHashtag}
	}
}

func (c *Config) normalizeVideo() {
	if c.Video.DefaultSceneCount <= 0 {
		c.Video.DefaultSceneCount = defaultSceneCount
	}
	if c.Video.MaxSceneCount <= 0 {
		c.Video.MaxSceneCount = defaultMaxSceneCount
	}
	if c.Video.DefaultDurationSeconds <= 0 {
		c.Video.DefaultDurationSeconds = defaultVideoDuration
	}
	if c.Video.MinDurationSeconds <= 0 {
		c.Video.MinDurationSeconds = defaultMinVideoDuration
	}
	if c.Video.MaxDurationSeconds <= 0 {
		c.Video.MaxDurationSeconds = defaultMaxVideoDuration
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.ShutdownGraceSeconds <= 0 {
		c.Workflow.ShutdownGraceSeconds = defaultShutdownGraceSeconds
	}
	if c.Workflow.SubscriberBuffer <= 0 {
		c.Workflow.SubscriberBuffer = defaultSubscriberBuffer
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(stringDefault(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(stringDefault(c.Logging.Level, defaultLogLevel))
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.StageOverrides) == 0 {
		c.Logging.StageOverrides = map[string]string{}
		return
	}
	normalized := make(map[string]string, len(c.Logging.StageOverrides))
	for stage, level := range c.Logging.StageOverrides {
		key := strings.ToLower(strings.TrimSpace(stage))
		value := strings.ToLower(strings.TrimSpace(level))
		if key == "" || value == "" {
			continue
		}
		normalized[key] = value
	}
	c.Logging.StageOverrides = normalized
}

func envFallback(value, envKey string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(envKey); ok {
		return strings.TrimSpace(env)
	}
	return ""
}

func stringDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

func cleanList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
