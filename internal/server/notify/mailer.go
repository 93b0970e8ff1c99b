// Package notify delivers confirmation emails. Delivery is asynchronous: the
// request path only enqueues, a single worker talks to SendGrid.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/dmitrijs2005/addressbook/internal/logging"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
)

const confirmationSubject = "Confirm your email"

// Deliverer sends one message synchronously.
type Deliverer interface {
	Deliver(ctx context.Context, m models.ConfirmationMail) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// newSendClient is a seam for tests.
var newSendClient = func(apiKey string) sendClient {
	return sendgrid.NewSendClient(apiKey)
}

type SendGridMailer struct {
	client sendClient
	from   *mail.Email
	log    logging.Logger
}

func NewSendGridMailer(apiKey, fromAddr, fromName string, log logging.Logger) *SendGridMailer {
	return &SendGridMailer{
		client: newSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddr),
		log:    log.With("module", "mailer"),
	}
}

func (m *SendGridMailer) Deliver(ctx context.Context, cm models.ConfirmationMail) error {
	to := mail.NewEmail(cm.UserName, cm.To)
	plain, htmlBody := confirmationBodies(cm)
	message := mail.NewSingleEmail(m.from, confirmationSubject, to, plain, htmlBody)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.log.Info(ctx, "confirmation email sent", "to", cm.To, "status", resp.StatusCode)
	return nil
}

func confirmationBodies(cm models.ConfirmationMail) (string, string) {
	plain := fmt.Sprintf("Hi %s,\n\nplease confirm your email by opening this link:\n%s\n", cm.UserName, cm.Link)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>please confirm your email by clicking <a href="%s">this link</a>.</p>`,
		html.EscapeString(cm.UserName), html.EscapeString(cm.Link))
	return plain, htmlBody
}

// LogMailer only logs the link. It is used when no SendGrid key is set.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	return &LogMailer{log: log.With("module", "mailer")}
}

func (m *LogMailer) Deliver(ctx context.Context, cm models.ConfirmationMail) error {
	m.log.Info(ctx, "confirmation link", "to", cm.To, "link", cm.Link)
	return nil
}
