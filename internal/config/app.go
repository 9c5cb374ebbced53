package config

import "github.com/caarlos0/env/v11"

type AppConfig struct {
	Server     ServerConfig
	Log        LogConfig
	Arena      ArenaConfig
	Settlement SettlementConfig
	Broadcast  BroadcastConfig
	LLM        LLMConfig
}

// parseEnv fills one config struct from the process environment.
func parseEnv[T any]() (T, error) {
	var cfg T
	err := env.Parse(&cfg)
	return cfg, err
}

func LoadApp() (cfg AppConfig, err error) {
	if cfg.Log, err = LoadLog(); err != nil {
		return AppConfig{}, err
	}
	if cfg.Server, err = LoadServer(); err != nil {
		return AppConfig{}, err
	}
	if cfg.Arena, err = LoadArena(); err != nil {
		return AppConfig{}, err
	}
	if cfg.Settlement, err = LoadSettlement(); err != nil {
		return AppConfig{}, err
	}
	if cfg.Broadcast, err = LoadBroadcast(); err != nil {
		return AppConfig{}, err
	}
	if cfg.LLM, err = LoadLLM(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
