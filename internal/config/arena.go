package config

import "time"

type ArenaConfig struct {
	// AgentActionTimeout bounds a single Decide call. An agent that
	// misses it folds, or checks when the call amount is zero.
	AgentActionTimeout time.Duration `env:"ARENA_AGENT_ACTION_TIMEOUT" envDefault:"30s"`
	HandInterval       time.Duration `env:"ARENA_HAND_INTERVAL" envDefault:"0s"`

	// DeckSeed pins the shuffle sequence for a whole session.
	// Zero seeds from the clock.
	DeckSeed int64 `env:"ARENA_DECK_SEED" envDefault:"0"`

	ChatLogLimit int `env:"ARENA_CHAT_LOG_LIMIT" envDefault:"50"`
}

func LoadArena() (ArenaConfig, error) {
	return parseEnv[ArenaConfig]()
}
