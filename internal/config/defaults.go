package config

const (
	defaultConfigPath          = "~/.config/doodlecast/config.toml"
	defaultLogDir              = "~/.local/share/doodlecast/logs"
	defaultOutputDir           = "./output"
	defaultManifestPath        = "~/.local/share/doodlecast/runs.db"
	defaultLogRetentionDays    = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultImageQuality        = "balanced"
	defaultImageBackendURL     = "http://127.0.0.1:7860"
	defaultImageTimeoutSeconds = 600
	defaultSpeechSpeed         = 1.0
	defaultSpeechSampleRate    = 22050
	defaultSpeechBackendURL    = "http://127.0.0.1:8888"
	defaultSpeechTimeout       = 120
	defaultPiperBinary         = "piper"
	defaultPiperModelDir       = "~/.local/share/doodlecast/piper"

	imageAPIKeyEnv  = "DOODLECAST_IMAGE_API_KEY"
	speechAPIKeyEnv = "DOODLECAST_SPEECH_API_KEY"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:     defaultCacheDir(),
			LogDir:       defaultLogDir,
			OutputDir:    defaultOutputDir,
			ManifestPath: defaultManifestPath,
		},
		Image: Image{
			Quality:        defaultImageQuality,
			BackendURL:     defaultImageBackendURL,
			TimeoutSeconds: defaultImageTimeoutSeconds,
		},
		Speech: Speech{
			Speed:               defaultSpeechSpeed,
			SampleRate:          defaultSpeechSampleRate,
			BackendURL:          defaultSpeechBackendURL,
			TimeoutSeconds:      defaultSpeechTimeout,
			PiperBinary:         defaultPiperBinary,
			PiperModelDir:       defaultPiperModelDir,
			PlaceholderFallback: true,
		},
		Cache: Cache{
			InFlightGuard: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
