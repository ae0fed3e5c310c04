package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMalformedJob marks a queue entry that was popped but could not be decoded.
var ErrMalformedJob = errors.New("malformed mail job")

// Job is one queued email.
type Job struct {
	To         string       `json:"to"`
	Template   Template     `json:"template"`
	Data       TemplateData `json:"data"`
	Attempts   int          `json:"attempts"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
}

// Outbox is a FIFO of mail jobs stored in a Redis list.
type Outbox struct {
	client *redis.Client
	key    string
}

// NewOutbox returns an outbox on the given list key.
func NewOutbox(client *redis.Client, key string) *Outbox {
	return &Outbox{client: client, key: key}
}

// Enqueue appends a job.
func (o *Outbox) Enqueue(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode mail job: %w", err)
	}
	if err := o.client.LPush(ctx, o.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue mail job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the oldest job. It returns nil, nil when
// the queue stayed empty. An entry that does not decode is already removed
// and comes back as ErrMalformedJob.
func (o *Outbox) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := o.client.BRPop(ctx, timeout, o.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue mail job: %w", err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("dequeue mail job: unexpected reply %v", result)
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	return &job, nil
}

// Len reports the number of pending jobs.
func (o *Outbox) Len(ctx context.Context) (int64, error) {
	return o.client.LLen(ctx, o.key).Result()
}
