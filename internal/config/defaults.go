package config

const (
	defaultConfigPath       = "~/.config/media-collector/config.toml"
	defaultDataDir          = "~/.local/share/media-collector"
	defaultLogDir           = "~/.local/share/media-collector/logs"
	defaultPictureDir       = "~/.local/share/media-collector/pictures"
	defaultAPIBind          = "127.0.0.1:8080"
	defaultTimeoutSeconds   = 30
	defaultUserAgent        = "media-collector/0.1.0"
	defaultRateLimit        = 10.0
	defaultMaxRetries       = 3
	defaultBaseDelayMS      = 1000
	defaultMaxDelayMS       = 60000
	defaultMALRateLimit     = 2.0
	defaultMALBaseURL       = "https://api.myanimelist.net/v2"
	defaultJikanRateLimit   = 1.0
	defaultJikanBaseURL     = "https://api.jikan.moe/v4"
	defaultAniListRateLimit = 0.5
	defaultAniListBaseURL   = "https://graphql.anilist.co"
	defaultInboxCapacity    = 1000
	defaultAdmitWindowMS    = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultNotifyTimeout    = 10
	defaultRedisChannel     = "media-collector:tasks"
	defaultTracingEndpoint  = "localhost:4318"
	defaultServiceName      = "media-collector"
	defaultEnvironment      = "development"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			PictureDir: defaultPictureDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		HTTP: HTTP{
			TimeoutSeconds:   defaultTimeoutSeconds,
			UserAgent:        defaultUserAgent,
			DefaultRateLimit: defaultRateLimit,
			Retry: Retry{
				MaxRetries:  defaultMaxRetries,
				BaseDelayMS: defaultBaseDelayMS,
				MaxDelayMS:  defaultMaxDelayMS,
			},
		},
		Sources: Sources{
			MAL: Source{
				Enabled:        true,
				RateLimit:      defaultMALRateLimit,
				RequiresAPIKey: true,
				BaseURL:        defaultMALBaseURL,
			},
			Jikan: Source{
				Enabled:   true,
				RateLimit: defaultJikanRateLimit,
				BaseURL:   defaultJikanBaseURL,
			},
			AniList: Source{
				Enabled:   true,
				RateLimit: defaultAniListRateLimit,
				BaseURL:   defaultAniListBaseURL,
			},
		},
		Pictures: Pictures{
			Enabled:   true,
			RateLimit: defaultRateLimit,
		},
		Scheduler: Scheduler{
			InboxCapacity: defaultInboxCapacity,
			AdmitWindowMS: defaultAdmitWindowMS,
			ReplayPending: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RedisChannel:   defaultRedisChannel,
			RequestTimeout: defaultNotifyTimeout,
			TaskFailures:   true,
		},
		Tracing: Tracing{
			Endpoint:    defaultTracingEndpoint,
			ServiceName: defaultServiceName,
			Environment: defaultEnvironment,
		},
	}
}
