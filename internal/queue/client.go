package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/sam02425/Document-Portal/internal/pipeline"
)

// ErrNotFinished is returned by Result while the job is still queued or
// running.
var ErrNotFinished = errors.New("job not finished")

// ClientConfig configures a Client.
type ClientConfig struct {
	RedisURL  string
	QueueName string

	// Retention keeps completed results readable. Default 24h.
	Retention time.Duration

	// MaxRetry bounds retries of failed jobs. Default 3.
	MaxRetry int
}

// Client submits document jobs and reads their results.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	cfg       ClientConfig
}

// NewClient connects to the queue's Redis.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 3
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Client{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		cfg:       cfg,
	}, nil
}

// Enqueue submits p. An empty JobID is replaced with a new UUID; the job id
// doubles as the task id, so resubmitting a job id is rejected by asynq.
func (c *Client) Enqueue(ctx context.Context, p Payload) (*asynq.TaskInfo, error) {
	if p.JobID == "" {
		p.JobID = uuid.NewString()
	}
	task, err := NewProcessTask(p, c.options(p.JobID)...)
	if err != nil {
		return nil, err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job %s: %w", p.JobID, err)
	}
	return info, nil
}

func (c *Client) options(jobID string) []asynq.Option {
	return []asynq.Option{
		asynq.TaskID(jobID),
		asynq.Queue(c.cfg.QueueName),
		asynq.Retention(c.cfg.Retention),
		asynq.MaxRetry(c.cfg.MaxRetry),
	}
}

// Result returns the document stored by a completed job.
func (c *Client) Result(jobID string) (pipeline.Document, error) {
	info, err := c.inspector.GetTaskInfo(c.cfg.QueueName, jobID)
	if err != nil {
		return pipeline.Document{}, fmt.Errorf("failed to read job %s: %w", jobID, err)
	}
	switch info.State {
	case asynq.TaskStateCompleted:
	case asynq.TaskStateArchived:
		return pipeline.Document{}, fmt.Errorf("job %s failed: %s", jobID, info.LastErr)
	default:
		return pipeline.Document{}, fmt.Errorf("job %s is %s: %w", jobID, info.State, ErrNotFinished)
	}

	var doc pipeline.Document
	if err := json.Unmarshal(info.Result, &doc); err != nil {
		return pipeline.Document{}, fmt.Errorf("failed to decode result of job %s: %w", jobID, err)
	}
	return doc, nil
}

// Close releases the Redis connections.
func (c *Client) Close() error {
	if err := c.inspector.Close(); err != nil {
		_ = c.client.Close()
		return fmt.Errorf("failed to close inspector: %w", err)
	}
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}
	return nil
}
