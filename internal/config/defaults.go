package config

const (
	defaultConfigPath        = "~/.config/converto/config.toml"
	defaultScratchDir        = "~/.cache/converto/scratch"
	defaultDataDir           = "~/.local/share/converto"
	defaultLogDir            = "~/.local/share/converto/logs"
	defaultServerBind        = "127.0.0.1:7488"
	defaultFFmpegBinary      = "ffmpeg"
	defaultMagickBinary      = "magick"
	defaultSofficeBinary     = "soffice"
	defaultRembgBinary       = "rembg"
	defaultFFprobeBinary     = "ffprobe"
	defaultImageTimeout      = 120
	defaultVideoTimeout      = 1800
	defaultGifTimeout        = 300
	defaultDocumentTimeout   = 300
	defaultBackgroundTimeout = 300
	defaultLimitImage        = 5
	defaultLimitVideoAudio   = 20
	defaultLimitGif          = 50
	defaultLimitDocument     = 50
	defaultLimitBackground   = 5
	defaultLimitCompress     = 5
	defaultEventsExchange    = "converto"
	defaultEventsRoutingKey  = "task_history"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			Magick:  defaultMagickBinary,
			Soffice: defaultSofficeBinary,
			Rembg:   defaultRembgBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Engine: Engine{
			ImageTimeout:      defaultImageTimeout,
			VideoTimeout:      defaultVideoTimeout,
			GifTimeout:        defaultGifTimeout,
			DocumentTimeout:   defaultDocumentTimeout,
			BackgroundTimeout: defaultBackgroundTimeout,
			VerifyOutputs:     true,
		},
		Limits: Limits{
			Image:            defaultLimitImage,
			VideoAudio:       defaultLimitVideoAudio,
			Gif:              defaultLimitGif,
			Document:         defaultLimitDocument,
			RemoveBackground: defaultLimitBackground,
			Compress:         defaultLimitCompress,
		},
		Events: Events{
			Exchange:   defaultEventsExchange,
			RoutingKey: defaultEventsRoutingKey,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
