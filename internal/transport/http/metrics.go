package httptransport

import "expvar"

var (
	metricSessionStartTotal  = expvar.NewInt("session_start_total")
	metricSessionStartErrors = expvar.NewInt("session_start_errors_total")

	metricDistributionTotal  = expvar.NewInt("distribution_trigger_total")
	metricDistributionErrors = expvar.NewInt("distribution_trigger_errors_total")

	metricSSEConnectionsTotal  = expvar.NewInt("sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("sse_connections_active")
)
