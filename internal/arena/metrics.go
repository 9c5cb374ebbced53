package arena

import "expvar"

var (
	metricSessionsStarted = expvar.NewInt("arena_sessions_started_total")
	metricHandsPlayed     = expvar.NewInt("arena_hands_played_total")
	metricAgentTimeouts   = expvar.NewInt("arena_agent_timeouts_total")
)
