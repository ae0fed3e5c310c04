package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DmytryS/user-actions-service/internal/mailer"
)

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 10 * time.Second
)

// MailWorker drains the mail outbox: it renders each job, sends it and
// requeues failed sends until the attempt budget runs out.
type MailWorker struct {
	outbox      *mailer.Outbox
	renderer    *mailer.Renderer
	sender      mailer.Sender
	maxAttempts int
	pollTimeout time.Duration
	logger      *zap.Logger
}

// MailWorkerConfig bundles the worker's collaborators.
type MailWorkerConfig struct {
	Outbox      *mailer.Outbox
	Renderer    *mailer.Renderer
	Sender      mailer.Sender
	MaxAttempts int
	PollTimeout time.Duration
	Logger      *zap.Logger
}

// NewMailWorker builds a worker.
func NewMailWorker(cfg MailWorkerConfig) *MailWorker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &MailWorker{
		outbox:      cfg.Outbox,
		renderer:    cfg.Renderer,
		sender:      cfg.Sender,
		maxAttempts: cfg.MaxAttempts,
		pollTimeout: cfg.PollTimeout,
		logger:      cfg.Logger.Named("mail_worker"),
	}
}

// Run processes jobs until ctx is cancelled. Queue errors back off exponentially.
func (w *MailWorker) Run(ctx context.Context) {
	w.logger.Info("mail worker started")
	defer w.logger.Info("mail worker stopped")

	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		_, err := w.ProcessNext(ctx)
		if err == nil {
			backoff = minBackoff
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		w.logger.Warn("mail queue unavailable", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// ProcessNext handles at most one job. It reports whether a job was taken;
// the error is reserved for queue failures.
func (w *MailWorker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.outbox.Dequeue(ctx, w.pollTimeout)
	if errors.Is(err, mailer.ErrMalformedJob) {
		w.logger.Error("dropping malformed mail job", zap.Error(err))
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	log := w.logger.With(
		zap.String("to", job.To),
		zap.String("template", string(job.Template)),
		zap.String("action_id", job.Data.ActionID),
		zap.Int("attempt", job.Attempts+1),
	)

	msg, err := w.renderer.Render(job.To, job.Template, job.Data)
	if err != nil {
		log.Error("dropping unrenderable mail job", zap.Error(err))
		return true, nil
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		job.Attempts++
		if job.Attempts >= w.maxAttempts {
			log.Error("giving up on mail job", zap.Error(err))
			return true, nil
		}
		log.Warn("mail send failed, requeueing", zap.Error(err))
		if qerr := w.outbox.Enqueue(ctx, *job); qerr != nil {
			return true, qerr
		}
		return true, nil
	}

	log.Info("mail sent")
	return true, nil
}
