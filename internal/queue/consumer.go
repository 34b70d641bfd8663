package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	perrors "github.com/sam02425/Document-Portal/internal/errors"
	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/logging"
	"github.com/sam02425/Document-Portal/internal/pipeline"
)

// Processor runs a document through the pipeline. *pipeline.Pipeline
// implements it.
type Processor interface {
	Process(ctx context.Context, inputs []pipeline.PageInput, hint extract.DocType, callerID string) (pipeline.Document, error)
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	RedisURL    string
	QueueName   string
	Concurrency int

	// JobTimeout bounds one job. Default 5m.
	JobTimeout time.Duration

	Processor Processor
	Logger    *slog.Logger
}

// Consumer runs process-document tasks.
type Consumer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	cfg    ConsumerConfig
	logger *slog.Logger
}

// NewConsumer creates a Consumer. Nothing runs until Start.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	c := newConsumer(cfg)
	c.server = asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			cfg.QueueName: 10,
			"default":     1,
		},
		RetryDelayFunc: retryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			c.logger.Warn("queue.task.failed",
				"type", task.Type(),
				"retry", retried,
				"max_retry", maxRetry,
				"error", err)
		}),
		Logger:   asynqLogger{c.logger},
		LogLevel: asynq.WarnLevel,
	})
	return c, nil
}

func newConsumer(cfg ConsumerConfig) *Consumer {
	c := &Consumer{
		mux:    asynq.NewServeMux(),
		cfg:    cfg,
		logger: logging.OrNop(cfg.Logger).With("queue", cfg.QueueName),
	}
	c.mux.HandleFunc(TypeProcessDocument, c.handleProcessDocument)
	return c
}

// retryDelay backs off exponentially: 5s, 10s, 20s, capped at one minute.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 3 {
		return time.Minute
	}
	return time.Duration(5*(1<<uint(n))) * time.Second
}

// Start begins processing in the background.
func (c *Consumer) Start() error {
	c.logger.Info("queue.consumer.start", "concurrency", c.cfg.Concurrency)
	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	return nil
}

// Stop waits for running jobs up to asynq's shutdown timeout and stops.
func (c *Consumer) Stop() {
	c.server.Shutdown()
	c.logger.Info("queue.consumer.stopped")
}

func (c *Consumer) handleProcessDocument(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("failed to decode job payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := c.logger.With("job_id", p.JobID)

	inputs, err := p.inputs()
	if err != nil {
		logger.Warn("queue.job.rejected", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	hint, err := p.docType()
	if err != nil {
		logger.Warn("queue.job.rejected", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logger.Info("queue.job.start", "pages", len(inputs), "doc_type", string(hint))

	jobCtx, cancel := context.WithTimeout(ctx, c.cfg.JobTimeout)
	defer cancel()

	doc, err := c.cfg.Processor.Process(jobCtx, inputs, hint, p.CallerID)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("queue.job.timeout", "duration_ms", duration.Milliseconds(), "timeout", c.cfg.JobTimeout)
			return fmt.Errorf("job %s timed out after %v: %w", p.JobID, c.cfg.JobTimeout, err)
		}
		if perrors.IsKind(err, perrors.KindInput) {
			logger.Warn("queue.job.rejected", "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Warn("queue.job.failed", "duration_ms", duration.Milliseconds(), "error", err)
		return fmt.Errorf("document processing failed: %w", err)
	}

	result, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	// Tasks built outside a server have no writer.
	if w := task.ResultWriter(); w != nil {
		if _, err := w.Write(result); err != nil {
			return fmt.Errorf("failed to store result: %w", err)
		}
	}

	logger.Info("queue.job.done",
		"request_id", doc.RequestID,
		"groups", len(doc.Groups),
		"duration_ms", duration.Milliseconds())
	return nil
}

// asynqLogger routes asynq's internal logging through slog.
type asynqLogger struct {
	l *slog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }

func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
