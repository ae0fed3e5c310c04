package mailer

import (
	"context"
	"fmt"
)

// QueueNotifier hands emails to the outbox; a worker renders and sends them.
type QueueNotifier struct {
	outbox *Outbox
}

// NewQueueNotifier builds a notifier backed by the outbox.
func NewQueueNotifier(outbox *Outbox) *QueueNotifier {
	return &QueueNotifier{outbox: outbox}
}

func (n *QueueNotifier) Notify(ctx context.Context, to string, tpl Template, data TemplateData) error {
	if !tpl.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, tpl)
	}
	return n.outbox.Enqueue(ctx, Job{To: to, Template: tpl, Data: data})
}

// DirectNotifier renders and sends on the caller's goroutine.
type DirectNotifier struct {
	renderer *Renderer
	sender   Sender
}

// NewDirectNotifier builds a synchronous notifier.
func NewDirectNotifier(renderer *Renderer, sender Sender) *DirectNotifier {
	return &DirectNotifier{renderer: renderer, sender: sender}
}

func (n *DirectNotifier) Notify(ctx context.Context, to string, tpl Template, data TemplateData) error {
	msg, err := n.renderer.Render(to, tpl, data)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}
