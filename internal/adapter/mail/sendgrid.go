package mail

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"btcinvest/internal/domain/model"
)

const sendEndpoint = "/v3/mail/send"

type SendGridMailer struct {
	apiKey string
	host   string
	from   *sgmail.Email
	log    *slog.Logger
}

// NewSendGridMailer sends through the SendGrid v3 API. An empty host means the public endpoint.
func NewSendGridMailer(apiKey, host, fromName, fromAddress string, log *slog.Logger) *SendGridMailer {
	return &SendGridMailer{
		apiKey: apiKey,
		host:   host,
		from:   sgmail.NewEmail(fromName, fromAddress),
		log:    log,
	}
}

func (m *SendGridMailer) SendDepositConfirmation(ctx context.Context, c model.DepositConfirmation) error {
	to := sgmail.NewEmail("", c.UserEmail)
	message := sgmail.NewSingleEmail(m.from, c.Subject, to, c.Text, "<strong>"+html.EscapeString(c.Text)+"</strong>")

	request := sendgrid.GetRequest(m.apiKey, sendEndpoint, m.host)
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected mail: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.log.Info("deposit confirmation sent", "to", c.UserEmail, "status", resp.StatusCode)
	return nil
}

// LogMailer only logs; used when no SendGrid key is configured.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendDepositConfirmation(_ context.Context, c model.DepositConfirmation) error {
	m.log.Info("mail delivery disabled, dropping deposit confirmation", "to", c.UserEmail, "subject", c.Subject)
	return nil
}
