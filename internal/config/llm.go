package config

import "time"

type LLMConfig struct {
	// APIKey empty means no model endpoint is available and every seat
	// falls back to the built-in policy agent.
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_API_BASE" envDefault:"https://api.openai.com/v1"`

	RequestTimeout time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"20s"`
	MaxTokens      int           `env:"LLM_MAX_TOKENS" envDefault:"256"`
	Temperature    float64       `env:"LLM_TEMPERATURE" envDefault:"0.3"`
}

func LoadLLM() (LLMConfig, error) {
	return parseEnv[LLMConfig]()
}
