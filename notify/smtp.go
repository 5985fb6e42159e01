// notify/smtp.go
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// TLS modes for SMTPConfig.TLS.
const (
	TLSStartTLS = "starttls"
	TLSSSL      = "ssl"
	TLSNone     = "none"
)

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	// Host is the SMTP server hostname (e.g., "email-smtp.us-east-1.amazonaws.com")
	Host string

	// Port is the SMTP server port (typically 587 for STARTTLS, 465 for SSL)
	Port int

	// Username for SMTP authentication; empty disables auth.
	Username string

	// Password for SMTP authentication
	Password string

	// FromAddress is the envelope and header sender. Never the visitor's address.
	FromAddress string

	// FromName is the sender display name (optional)
	FromName string

	// TLS selects "starttls" (default), "ssl" or "none".
	TLS string

	// Timeout for SMTP operations (default: 30 seconds)
	Timeout time.Duration
}

// SMTPTransport sends notifications through an SMTP relay.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport creates an SMTP transport, filling in defaults.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	cfg.TLS = strings.ToLower(strings.TrimSpace(cfg.TLS))
	if cfg.TLS == "" {
		cfg.TLS = TLSStartTLS
	}
	if cfg.Port == 0 {
		if cfg.TLS == TLSSSL {
			cfg.Port = 465
		} else {
			cfg.Port = 587
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPTransport{cfg: cfg}
}

// Send delivers msg in a single SMTP session.
func (t *SMTPTransport) Send(ctx context.Context, msg Email) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("smtp: no recipients specified")
	}
	if msg.TextBody == "" && msg.HTMLBody == "" {
		return fmt.Errorf("smtp: message body is empty")
	}

	m, err := t.buildMsg(msg)
	if err != nil {
		return err
	}

	c, err := mail.NewClient(t.cfg.Host, t.options()...)
	if err != nil {
		return fmt.Errorf("smtp: failed to create client: %w", err)
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp: failed to send: %w", err)
	}
	return nil
}

func (t *SMTPTransport) buildMsg(msg Email) (*mail.Msg, error) {
	m := mail.NewMsg()

	if t.cfg.FromName != "" {
		if err := m.FromFormat(t.cfg.FromName, t.cfg.FromAddress); err != nil {
			return nil, fmt.Errorf("smtp: invalid from address: %w", err)
		}
	} else if err := m.From(t.cfg.FromAddress); err != nil {
		return nil, fmt.Errorf("smtp: invalid from address: %w", err)
	}

	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("smtp: invalid to address: %w", err)
	}

	// The visitor's address only ever goes in Reply-To.
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("smtp: invalid reply-to address: %w", err)
		}
	}

	m.Subject(msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}
	return m, nil
}

func (t *SMTPTransport) options() []mail.Option {
	// The TLS policy goes first: go-mail only rewrites the port for a policy
	// while the port is still its default.
	var opts []mail.Option
	switch t.cfg.TLS {
	case TLSSSL:
		opts = append(opts, mail.WithSSL())
	case TLSNone:
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	opts = append(opts,
		mail.WithPort(t.cfg.Port),
		mail.WithTimeout(t.cfg.Timeout),
	)

	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}
	return opts
}
