package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"nimbusdrive/internal/domain"
)

const retryBackoffBase = 5 * time.Second

// ConsumerOptions настраивают цикл обработки очереди
type ConsumerOptions struct {
	Concurrency  int
	RatePerSec   int
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// Consumer опрашивает таблицу очереди и выполняет созревшие задания.
// Несколько экземпляров могут работать одновременно: заявка заданий
// идет через FOR UPDATE SKIP LOCKED, поэтому задание достается ровно
// одному воркеру.
type Consumer struct {
	store   JobStore
	handler Handler
	opts    ConsumerOptions
	limiter *rate.Limiter
	sem     chan struct{}
	wg      sync.WaitGroup
}

func NewConsumer(store JobStore, handler Handler, opts ConsumerOptions) *Consumer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 10
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = time.Minute
	}

	return &Consumer{
		store:   store,
		handler: handler,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec),
		sem:     make(chan struct{}, opts.Concurrency),
	}
}

// Run крутит цикл опроса до отмены контекста и дожидается активных заданий
func (c *Consumer) Run(ctx context.Context) {
	log.Printf("[Queue] Consumer started (concurrency=%d, rate=%d/s, poll=%s)",
		c.opts.Concurrency, c.opts.RatePerSec, c.opts.PollInterval)

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		c.poll(ctx)

		select {
		case <-ctx.Done():
			c.wg.Wait()
			log.Println("[Queue] Consumer stopped")
			return
		case <-ticker.C:
		}
	}
}

func (c *Consumer) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	jobs, err := c.store.ClaimDue(ctx, c.opts.Concurrency, time.Now())
	if err != nil {
		log.Printf("[Queue] Failed to claim jobs: %v", err)
		return
	}

	for i := range jobs {
		job := jobs[i]

		if err := c.limiter.Wait(ctx); err != nil {
			// контекст отменен: вернем задание в очередь как есть
			c.requeue(&job, "shutdown before execution")
			continue
		}

		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			c.requeue(&job, "shutdown before execution")
			continue
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer func() { <-c.sem }()
			c.execute(ctx, &job)
		}()
	}
}

func (c *Consumer) execute(ctx context.Context, job *domain.DeleteJob) {
	jobCtx, cancel := context.WithTimeout(ctx, c.opts.JobTimeout)
	defer cancel()

	err := c.handler.HandleDelete(jobCtx, job)
	if err == nil {
		if markErr := c.store.MarkDone(context.Background(), job.ID); markErr != nil {
			log.Printf("[Queue] Failed to mark job %s done: %v", job.ID, markErr)
		}
		return
	}

	log.Printf("[Queue] Job %s failed (attempt %d/%d): %v", job.ID, job.Attempts, job.MaxAttempts, err)

	if job.Attempts >= job.MaxAttempts {
		if abandonErr := c.store.Abandon(context.Background(), job.ID, err.Error()); abandonErr != nil {
			log.Printf("[Queue] Failed to abandon job %s: %v", job.ID, abandonErr)
			return
		}
		log.Printf("[Queue] ALERT: job %s abandoned after %d attempts, object %s requires manual cleanup",
			job.ID, job.Attempts, job.StorageKey)
		return
	}

	c.requeue(job, err.Error())
}

// requeue возвращает задание со сдвигом по экспоненциальному backoff
func (c *Consumer) requeue(job *domain.DeleteJob, reason string) {
	backoff := retryBackoffBase * time.Duration(1<<(job.Attempts-1))
	fireAt := time.Now().Add(backoff)

	if err := c.store.Requeue(context.Background(), job.ID, fireAt, reason); err != nil {
		log.Printf("[Queue] Failed to requeue job %s: %v", job.ID, err)
		return
	}

	log.Printf("[Queue] Job %s requeued, next attempt at %s", job.ID, fireAt.Format("2006-01-02 15:04:05"))
}
