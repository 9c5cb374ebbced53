package config

type ServerConfig struct {
	// PostgresDSN may be empty, in which case the server runs without
	// persistence and storage-backed endpoints report 503.
	PostgresDSN string `env:"POSTGRES_DSN"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`
}

func LoadServer() (ServerConfig, error) {
	return parseEnv[ServerConfig]()
}
