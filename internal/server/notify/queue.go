package notify

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/addressbook/internal/logging"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
)

var ErrQueueFull = errors.New("mail queue is full")

const (
	DefaultQueueSize = 64
	deliverTimeout   = 15 * time.Second
)

// Queue buffers confirmation mails for a single background worker.
type Queue struct {
	ch       chan models.ConfirmationMail
	delivery Deliverer
	log      logging.Logger
}

func NewQueue(size int, d Deliverer, log logging.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		ch:       make(chan models.ConfirmationMail, size),
		delivery: d,
		log:      log.With("module", "mailqueue"),
	}
}

// SendConfirmation enqueues without blocking. A full queue drops the mail.
func (q *Queue) SendConfirmation(ctx context.Context, m models.ConfirmationMail) error {
	select {
	case q.ch <- m:
		return nil
	default:
		mailsDropped.Inc()
		return ErrQueueFull
	}
}

// Run delivers queued mails until ctx is cancelled, then flushes whatever is
// still buffered and returns.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case m := <-q.ch:
			q.deliver(ctx, m)
		case <-ctx.Done():
			q.flush(context.WithoutCancel(ctx))
			return
		}
	}
}

func (q *Queue) flush(ctx context.Context) {
	for {
		select {
		case m := <-q.ch:
			q.deliver(ctx, m)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, m models.ConfirmationMail) {
	// a mail already taken off the queue is delivered even during shutdown
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
	defer cancel()

	if err := q.delivery.Deliver(ctx, m); err != nil {
		mailsFailed.Inc()
		q.log.Error(ctx, "confirmation email failed", "to", m.To, "error", err)
		return
	}
	mailsSent.Inc()
}
