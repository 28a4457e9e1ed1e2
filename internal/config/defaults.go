package config

const (
	defaultWorkDir                = "~/.local/share/subforge/work"
	defaultChunksDir              = "~/.local/share/subforge/chunks"
	defaultLogDir                 = "~/.local/share/subforge/logs"
	defaultWorkers                = 4
	defaultStatusIntervalSeconds  = 60
	defaultActiveWindowSeconds    = 300
	defaultSourceLanguage         = "he"
	defaultTranslationALanguage   = "ar"
	defaultTranslationBLanguage   = "ru"
	defaultChunkSegments          = 20
	defaultRetryAttempts          = 3
	defaultRetryDelaySeconds      = 5
	defaultLLMBaseURL             = "https://api.openai.com/v1"
	defaultCorrectionModel        = "gpt-4o-mini"
	defaultTranslationModel       = "gpt-4o-mini"
	defaultLLMTemperature         = 0.2
	defaultLLMTimeoutSeconds      = 180
	defaultTranscriptionBaseURL   = "https://api.openai.com/v1"
	defaultTranscriptionModel     = "whisper-1"
	defaultMaxUploadMiB           = 24
	defaultTranscribeTimeoutSecs  = 600
	defaultHostingBaseURL         = "https://dev.vdocipher.com/api"
	defaultHostingTimeoutSeconds  = 120
	defaultDownstreamTimeoutSecs  = 60
	defaultLogLevel               = "info"
	defaultLogFormat              = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			ChunksDir: defaultChunksDir,
			LogDir:    defaultLogDir,
		},
		Scheduler: Scheduler{
			Workers:             defaultWorkers,
			StatusIntervalSecs:  defaultStatusIntervalSeconds,
			ActiveWindowSeconds: defaultActiveWindowSeconds,
		},
		Pipeline: Pipeline{
			SourceLanguage:    defaultSourceLanguage,
			TranslationA:      defaultTranslationALanguage,
			TranslationB:      defaultTranslationBLanguage,
			EnableCorrection:  true,
			EnableTranslation: true,
			ChunkSegments:     defaultChunkSegments,
		},
		Retry: Retry{
			Attempts:     defaultRetryAttempts,
			DelaySeconds: defaultRetryDelaySeconds,
		},
		LLM: LLM{
			BaseURL:          defaultLLMBaseURL,
			CorrectionModel:  defaultCorrectionModel,
			TranslationModel: defaultTranslationModel,
			Temperature:      defaultLLMTemperature,
			TimeoutSeconds:   defaultLLMTimeoutSeconds,
		},
		Transcription: Transcription{
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			MaxUploadMiB:   defaultMaxUploadMiB,
			TimeoutSeconds: defaultTranscribeTimeoutSecs,
		},
		Hosting: Hosting{
			BaseURL:        defaultHostingBaseURL,
			TimeoutSeconds: defaultHostingTimeoutSeconds,
		},
		Downstream: Downstream{
			TimeoutSeconds: defaultDownstreamTimeoutSecs,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
