package config

import "time"

type BroadcastConfig struct {
	// WebhookURLs receive every arena event as a JSON POST.
	// Empty leaves only the in-process event buffer and log sink.
	WebhookURLs []string `env:"BROADCAST_WEBHOOK_URLS" envSeparator:","`

	Workers        int           `env:"BROADCAST_WORKERS" envDefault:"2"`
	QueueSize      int           `env:"BROADCAST_QUEUE_SIZE" envDefault:"256"`
	RequestTimeout time.Duration `env:"BROADCAST_REQUEST_TIMEOUT" envDefault:"5s"`
	RetryMax       int           `env:"BROADCAST_RETRY_MAX" envDefault:"1"`
	RetryBase      time.Duration `env:"BROADCAST_RETRY_BASE" envDefault:"500ms"`

	// EventBufferSize caps the replay window served over SSE.
	EventBufferSize int `env:"BROADCAST_EVENT_BUFFER" envDefault:"500"`
}

func LoadBroadcast() (BroadcastConfig, error) {
	return parseEnv[BroadcastConfig]()
}
