package agent

import (
	"stakepit/internal/config"

	"github.com/rs/zerolog/log"
)

// Roster builds one agent per model name, in seat order. With no API
// key configured every seat falls back to the policy player so a
// session still runs end to end.
func Roster(cfg config.LLMConfig, modelNames []string, seed int64) []Agent {
	var client *Client
	if cfg.APIKey != "" {
		client = NewClient(cfg)
	} else {
		log.Warn().Msg("no LLM API key configured, seating policy agents")
	}
	agents := make([]Agent, 0, len(modelNames))
	for i, model := range modelNames {
		if client != nil {
			agents = append(agents, NewLLMAgent(model, client))
		} else {
			agents = append(agents, NewPolicyAgent(model, seed+int64(i)))
		}
	}
	return agents
}
