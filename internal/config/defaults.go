package config

const (
	defaultWorkspaceDir     = "~/.local/share/storyforge/workspace"
	defaultCacheDir         = "~/.local/share/storyforge/cache"
	defaultLogDir           = "~/.local/share/storyforge/logs"
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultTranscodeWorkers = 4
	defaultHeadroomDB       = -1.0
	defaultMaxGainDB        = 10.0
	defaultTimeoutSeconds   = 300
	defaultCanvasWidth      = 320
	defaultCanvasHeight     = 240
	defaultCipherScheme     = "v2"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			CacheDir:     defaultCacheDir,
			LogDir:       defaultLogDir,
		},
		Transcode: Transcode{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			Workers:       defaultTranscodeWorkers,
			HeadroomDB:    defaultHeadroomDB,
			MaxGainDB:     defaultMaxGainDB,
			TimeoutSecs:   defaultTimeoutSeconds,
		},
		Image: Image{
			CanvasWidth:  defaultCanvasWidth,
			CanvasHeight: defaultCanvasHeight,
			CropMargin:   0,
		},
		Device: Device{
			CipherScheme: defaultCipherScheme,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
