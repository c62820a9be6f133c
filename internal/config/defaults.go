package config

const (
	defaultConfigPath           = "~/.config/reelfactory/config.toml"
	defaultDataDir              = "~/.local/share/reelfactory"
	defaultLogDir               = "~/.local/share/reelfactory/logs"
	defaultMediaDir             = "~/.local/share/reelfactory/media"
	defaultSocketName           = "reelfactory.sock"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMReferer           = "https://github.com/reelfactory/reelfactory"
	defaultLLMTitle             = "reelfactory"
	defaultLLMTimeoutSeconds    = 60
	defaultGeminiImageModel     = "imagen-4.0-generate-001"
	defaultGeminiVideoModel     = "veo-3.1-generate-preview"
	defaultGeminiAspectRatio    = "9:16"
	defaultPollIntervalSeconds  = 5
	defaultPollMaxAttempts      = 120
	defaultStorageRegion        = "auto"
	defaultPublisherBaseURL     = "https://api.getcirclo.com"
	defaultPublisherProfile     = "general"
	defaultPublisherTimeout     = 30
	defaultPublisherRPM         = 30
	defaultContentCount         = 5
	defaultContentMaxCount      = 10
	defaultSceneCount           = 3
	defaultMaxSceneCount        = 5
	defaultVideoDuration        = 30
	defaultMinVideoDuration     = 15
	defaultMaxVideoDuration     = 60
	defaultHeartbeatInterval    = 15
	defaultShutdownGraceSeconds = 30
	defaultSubscriberBuffer     = 64
	defaultNotifyRequestTimeout = 10
	defaultScheduleContentCount = 1
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 14
	envLLMAPIKey                = "REELFACTORY_LLM_API_KEY"
	envGeminiAPIKey             = "REELFACTORY_GEMINI_API_KEY"
	envPublisherToken           = "REELFACTORY_PUBLISHER_TOKEN"
	envStorageAccessKeyID       = "REELFACTORY_STORAGE_ACCESS_KEY_ID"
	envStorageSecretAccessKey   = "REELFACTORY_STORAGE_SECRET_ACCESS_KEY"
	defaultHashtag              = "#DNA"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// DefaultNiches lists the content niches the trend stage draws from.
var DefaultNiches = []string{
	"Art & Design",
	"Business",
	"Entertainment",
	"Finance",
	"Fitness",
	"Gaming",
	"Health & Wellness",
	"Lifestyle",
	"Music",
	"Sports",
	"Technology",
	"Travel",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			MediaDir: defaultMediaDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Gemini: Gemini{
			ImageModel:          defaultGeminiImageModel,
			VideoModel:          defaultGeminiVideoModel,
			AspectRatio:         defaultGeminiAspectRatio,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			PollMaxAttempts:     defaultPollMaxAttempts,
		},
		Storage: Storage{
			Backend: StorageLocal,
			Region:  defaultStorageRegion,
		},
		Publisher: Publisher{
			BaseURL:           defaultPublisherBaseURL,
			Profile:           defaultPublisherProfile,
			TimeoutSeconds:    defaultPublisherTimeout,
			RequestsPerMinute: defaultPublisherRPM,
		},
		Content: Content{
			DefaultCount: defaultContentCount,
			MaxCount:     defaultContentMaxCount,
			Niches:       append([]string(nil), DefaultNiches...),
			Hashtags:     []string{defaultHashtag},
		},
		Video: Video{
			DefaultSceneCount:      defaultSceneCount,
			MaxSceneCount:          defaultMaxSceneCount,
			DefaultDurationSeconds: defaultVideoDuration,
			MinDurationSeconds:     defaultMinVideoDuration,
			MaxDurationSeconds:     defaultMaxVideoDuration,
		},
		Workflow: Workflow{
			HeartbeatInterval:    defaultHeartbeatInterval,
			ShutdownGraceSeconds: defaultShutdownGraceSeconds,
			SubscriberBuffer:     defaultSubscriberBuffer,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCompleted:   true,
			JobFailed:      true,
		},
		Schedule: Schedule{
			ContentCount: defaultScheduleContentCount,
		},
		Logging: Logging{
			Format:         defaultLogFormat,
			Level:          defaultLogLevel,
			RetentionDays:  defaultLogRetentionDays,
			StageOverrides: map[string]string{},
		},
	}
}
