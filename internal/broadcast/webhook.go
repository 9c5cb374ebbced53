package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"stakepit/internal/config"
)

type webhookJob struct {
	url     string
	body    []byte
	attempt int
}

type webhookEnvelope struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
	TS        int64  `json:"ts"`
	Data      any    `json:"data"`
}

// WebhookPublisher POSTs every event to each configured URL through a
// bounded worker pool. A full queue drops the event; a failed delivery
// retries with exponential backoff up to RetryMax extra attempts.
type WebhookPublisher struct {
	cfg    config.BroadcastConfig
	client *http.Client
	jobs   chan webhookJob
	done   chan struct{}

	mu      sync.Mutex
	started bool
}

func NewWebhookPublisher(cfg config.BroadcastConfig) *WebhookPublisher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	return &WebhookPublisher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		jobs:   make(chan webhookJob, cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

func (p *WebhookPublisher) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.cfg.Workers; i++ {
		go p.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(p.done)
	}()
}

func (p *WebhookPublisher) Publish(ev Event) {
	if len(p.cfg.WebhookURLs) == 0 {
		return
	}
	body, err := json.Marshal(webhookEnvelope{
		Event:     ev.Type,
		SessionID: ev.SessionID,
		TS:        time.Now().UnixMilli(),
		Data:      ev.Data,
	})
	if err != nil {
		log.Warn().Err(err).Str("event", ev.Type).Msg("webhook payload marshal failed")
		return
	}
	for _, url := range p.cfg.WebhookURLs {
		p.enqueue(webhookJob{url: url, body: body})
	}
}

func (p *WebhookPublisher) enqueue(job webhookJob) {
	select {
	case <-p.done:
	case p.jobs <- job:
		metricWebhookQueuedTotal.Add(1)
		metricWebhookQueueLen.Set(int64(len(p.jobs)))
		return
	default:
	}
	metricWebhookDroppedTotal.Add(1)
}

func (p *WebhookPublisher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case job := <-p.jobs:
			metricWebhookQueueLen.Set(int64(len(p.jobs)))
			p.deliver(ctx, job)
		}
	}
}

func (p *WebhookPublisher) deliver(ctx context.Context, job webhookJob) {
	err := p.send(ctx, job)
	if err == nil {
		metricWebhookSentTotal.Add(1)
		return
	}
	metricWebhookFailedTotal.Add(1)
	if job.attempt >= p.cfg.RetryMax {
		metricWebhookRetryDroppedTotal.Add(1)
		log.Warn().Err(err).Str("url", job.url).Msg("webhook delivery dropped")
		return
	}
	job.attempt++
	metricWebhookRetryTotal.Add(1)
	delay := p.cfg.RetryBase * time.Duration(1<<(job.attempt-1))
	time.AfterFunc(delay, func() {
		select {
		case <-p.done:
		case p.jobs <- job:
			metricWebhookQueueLen.Set(int64(len(p.jobs)))
		default:
			metricWebhookDroppedTotal.Add(1)
		}
	})
}

func (p *WebhookPublisher) send(ctx context.Context, job webhookJob) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, job.url, bytes.NewReader(job.body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
