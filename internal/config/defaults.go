package config

const (
	defaultUploadDir             = "uploads"
	defaultOutputDir             = "output"
	defaultTestFilesDir          = "test_files"
	defaultBind                  = "0.0.0.0:8000"
	defaultPublicBaseURL         = "http://localhost:8000"
	defaultReadHeaderTimeout     = 10
	defaultIdleTimeout           = 60
	defaultMultipartMemoryMiB    = 32
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultDownloadTimeout       = 30
	defaultDownloadUserAgent     = "avmerge/dev"
	defaultRetentionMaxAge       = 60
	defaultRetentionSweepMinutes = 0
	defaultLogFormat             = "auto"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:    defaultUploadDir,
			OutputDir:    defaultOutputDir,
			TestFilesDir: defaultTestFilesDir,
		},
		Server: Server{
			Bind:                     defaultBind,
			PublicBaseURL:            defaultPublicBaseURL,
			ReadHeaderTimeoutSeconds: defaultReadHeaderTimeout,
			IdleTimeoutSeconds:       defaultIdleTimeout,
			MultipartMemoryMiB:       defaultMultipartMemoryMiB,
		},
		Media: Media{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Download: Download{
			TimeoutSeconds: defaultDownloadTimeout,
			UserAgent:      defaultDownloadUserAgent,
		},
		Retention: Retention{
			MaxAgeMinutes:        defaultRetentionMaxAge,
			SweepIntervalMinutes: defaultRetentionSweepMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
