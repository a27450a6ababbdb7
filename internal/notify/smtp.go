package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection parameters.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // optional - some servers allow unauthenticated relay
	Password string // optional
	From     string // default sender address
	FromName string // optional sender display name
}

// Validate checks that required configuration is present.
func (c *SMTPConfig) Validate() error {
	if c.Host == "" {
		return ErrMissingSMTPHost
	}
	return nil
}

// SMTPSender implements Sender over SMTP using go-mail, which handles
// TLS/STARTTLS negotiation, auth methods and MIME construction.
type SMTPSender struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewSMTPSender creates a new SMTP sender.
func NewSMTPSender(config SMTPConfig, logger zerolog.Logger) (*SMTPSender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SMTPSender{
		config: config,
		logger: logger.With().Str("component", "smtp").Logger(),
	}, nil
}

// Send delivers a message via SMTP.
func (s *SMTPSender) Send(ctx context.Context, message *Message) (string, error) {
	if len(message.To) == 0 {
		return "", ErrMissingRecipient
	}

	msg := mail.NewMsg()

	from := message.From
	if from == "" {
		if s.config.FromName != "" {
			from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
		} else {
			from = s.config.From
		}
	}
	if err := msg.From(from); err != nil {
		return "", fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(message.To...); err != nil {
		return "", fmt.Errorf("invalid to address: %w", err)
	}

	msg.Subject(message.Subject)
	msg.SetBodyString(mail.TypeTextPlain, message.TextBody)
	if message.HTMLBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, message.HTMLBody)
	}

	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTimeout(30 * time.Second),
	}
	if s.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
		)
	}

	client, err := mail.NewClient(s.config.Host, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.Error().Err(err).Strs("to", message.To).Str("subject", message.Subject).Msg("SMTP send failed")
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug().Strs("to", message.To).Str("subject", message.Subject).Msg("email sent")
	if ids := msg.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
