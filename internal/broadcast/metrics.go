package broadcast

import "expvar"

var (
	metricEventsPublishedTotal     = expvar.NewInt("broadcast_events_published_total")
	metricWebhookQueuedTotal       = expvar.NewInt("broadcast_webhook_queued_total")
	metricWebhookDroppedTotal      = expvar.NewInt("broadcast_webhook_dropped_total")
	metricWebhookSentTotal         = expvar.NewInt("broadcast_webhook_sent_total")
	metricWebhookFailedTotal       = expvar.NewInt("broadcast_webhook_failed_total")
	metricWebhookRetryTotal        = expvar.NewInt("broadcast_webhook_retry_total")
	metricWebhookRetryDroppedTotal = expvar.NewInt("broadcast_webhook_retry_dropped_total")
	metricWebhookQueueLen          = expvar.NewInt("broadcast_webhook_queue_len")
)
