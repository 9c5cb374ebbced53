package config

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`

	// File, when set, routes log output to a size-capped file instead
	// of stdout. MaxMB bounds that file.
	File  string `env:"LOG_FILE"`
	MaxMB int    `env:"LOG_MAX_MB" envDefault:"10"`
}

func LoadLog() (LogConfig, error) {
	return parseEnv[LogConfig]()
}
