// Package mailer sends the daily digest. Without an API key it logs the
// message instead, so local runs never reach a real inbox.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers one message and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendMailer sends through the Resend API, throttled to stay under the
// provider's request rate.
type ResendMailer struct {
	emails  emailSender
	from    string
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewResendMailer(apiKey, from string, perSecond float64, log zerolog.Logger) *ResendMailer {
	client := resend.NewClient(apiKey)
	return newResendMailer(client.Emails, from, perSecond, log)
}

func newResendMailer(emails emailSender, from string, perSecond float64, log zerolog.Logger) *ResendMailer {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &ResendMailer{
		emails:  emails,
		from:    from,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 {
		return "", errors.New("message has no recipients")
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return "", err
	}

	sent, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	m.log.Info().Str("email_id", sent.Id).Int("recipients", len(msg.To)).Msg("email sent")
	return sent.Id, nil
}

// LogMailer is the dev mode: the message is logged, nothing is sent. Bodies
// carry signed feedback links, so only their sizes are logged.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 {
		return "", errors.New("message has no recipients")
	}
	id := "dev-" + uuid.NewString()
	m.log.Warn().
		Str("email_id", id).
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("text_bytes", len(msg.Text)).
		Int("html_bytes", len(msg.HTML)).
		Msg("RESEND_API_KEY not set, email logged instead of sent")
	return id, nil
}

// New picks ResendMailer when apiKey is set and LogMailer otherwise.
func New(apiKey, from string, perSecond float64, log zerolog.Logger) Mailer {
	if apiKey == "" {
		return NewLogMailer(log)
	}
	return NewResendMailer(apiKey, from, perSecond, log)
}
