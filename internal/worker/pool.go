package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
)

const (
	QueueEFactura = "jobs:efactura"
	QueueEmail    = "jobs:email"
)

// Job types.
const (
	JobEFacturaSubmit = "efactura_submit"
	JobInvoiceEmail   = "invoice_email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EFacturaPayload asks the e-Factura worker to upload a pending submission.
type EFacturaPayload struct {
	SubmissionID string `json:"submission_id"`
}

// EmailPayload sends an invoice PDF to a partner.
type EmailPayload struct {
	CompanyID string `json:"company_id"`
	InvoiceID string `json:"invoice_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEFactura pushes a submission upload job to Redis.
func (d *Dispatcher) EnqueueEFactura(ctx context.Context, payload EFacturaPayload) error {
	return d.enqueue(ctx, QueueEFactura, JobEFacturaSubmit, payload)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	return d.enqueue(ctx, QueueEmail, JobInvoiceEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// HandlerFunc processes one job payload. A returned error is final: the job
// goes to the dead letter queue. Handlers retry transient failures
// themselves.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Pool consumes the job queues with a fixed number of goroutines.
type Pool struct {
	rdb      *redis.Client
	metrics  *infra.Metrics
	handlers map[string]HandlerFunc

	// BlockTimeout bounds each BRPOP so shutdown is noticed promptly.
	BlockTimeout time.Duration
}

func NewPool(rdb *redis.Client, metrics *infra.Metrics) *Pool {
	return &Pool{
		rdb:          rdb,
		metrics:      metrics,
		handlers:     make(map[string]HandlerFunc),
		BlockTimeout: 5 * time.Second,
	}
}

// Register binds a job type to its handler. Call before Start.
func (p *Pool) Register(jobType string, fn HandlerFunc) {
	p.handlers[jobType] = fn
}

// Start launches numWorkers goroutines consuming both queues. Each goroutine
// blocks on BRPOP, so idle workers cost nothing. The returned WaitGroup is
// done once every worker has seen ctx cancelled.
func (p *Pool) Start(ctx context.Context, numWorkers int) *sync.WaitGroup {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

func (p *Pool) run(ctx context.Context, id int) {
	queues := []string{QueueEFactura, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
		}

		result, err := p.rdb.BRPop(ctx, p.BlockTimeout, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("worker: dequeue failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		p.process(ctx, result[0], result[1])
	}
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		// the raw text is kept as a JSON string; it is not valid JSON itself
		quoted, _ := json.Marshal(raw)
		SendToDLQ(ctx, p.rdb, queue, "unknown", quoted, "malformed envelope: "+err.Error(), 0)
		return
	}

	fn, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no handler registered for job type")
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, "no handler registered", 0)
		p.metrics.Job(job.Type, "dead")
		return
	}

	start := time.Now()
	if err := fn(ctx, job.Payload); err != nil {
		log.Error().Err(err).Str("type", job.Type).Str("queue", queue).Msg("job failed")
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, err.Error(), 1)
		p.metrics.Job(job.Type, "dead")
		return
	}
	p.metrics.Job(job.Type, "ok")
	log.Debug().Str("type", job.Type).Dur("took", time.Since(start)).Msg("job done")
}
