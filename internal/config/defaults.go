package config

const (
	defaultDataDir   = "~/.local/share/ferry/data"
	defaultLogDir    = "~/.local/share/ferry/logs"
	defaultAPIBind   = "127.0.0.1:7519"
	defaultLogLevel  = "info"
	defaultLogFormat = "text"

	defaultProviderRequestTimeout = 120
	defaultProviderMaxDownloadMiB = 512

	defaultStorageBucket         = "videos"
	defaultStorageRequestTimeout = 180

	defaultThumbnailTimeOffset       = 1
	defaultThumbnailWidth            = 640
	defaultThumbnailHeight           = 360
	defaultThumbnailTimeoutSeconds   = 120
	defaultThumbnailPropagationDelay = 15

	defaultMaxAttempts         = 3
	defaultStuckTimeoutMinutes = 10
	defaultStuckSweepMinutes   = 3
	defaultRetrySweepMinutes   = 5
	defaultDispatchSlots       = 8
	defaultDispatchTimeoutSecs = 120

	defaultNotifyRequestTimeout = 10
)

func defaultBackoffMinutes() []int {
	return []int{2, 5, 10}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Provider: Provider{
			RequestTimeout: defaultProviderRequestTimeout,
			MaxDownloadMiB: defaultProviderMaxDownloadMiB,
		},
		Storage: Storage{
			Bucket:         defaultStorageBucket,
			RequestTimeout: defaultStorageRequestTimeout,
		},
		Thumbnails: Thumbnails{
			TimeOffsetSeconds: defaultThumbnailTimeOffset,
			Width:             defaultThumbnailWidth,
			Height:            defaultThumbnailHeight,
			TimeoutSeconds:    defaultThumbnailTimeoutSeconds,
			PropagationDelay:  defaultThumbnailPropagationDelay,
		},
		Pipeline: Pipeline{
			MaxAttempts:         defaultMaxAttempts,
			BackoffMinutes:      defaultBackoffMinutes(),
			StuckTimeoutMinutes: defaultStuckTimeoutMinutes,
			StuckSweepMinutes:   defaultStuckSweepMinutes,
			RetrySweepMinutes:   defaultRetrySweepMinutes,
			DispatchSlots:       defaultDispatchSlots,
			DispatchTimeoutSecs: defaultDispatchTimeoutSecs,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Errors:         true,
			Lifecycle:      false,
		},
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}
