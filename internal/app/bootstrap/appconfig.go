package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/notify"
)

// EnvPrefix is the environment prefix for every key, core and app.
const EnvPrefix = "CONTACT"

// Mail transports selectable with mail_transport.
const (
	TransportLog  = "log"
	TransportSMTP = "smtp"
	TransportSES  = "ses"
)

// AppKeys are the service's configuration keys on top of the core ones.
var AppKeys = []config.AppKey{
	{Name: "contact_path", Default: "/contact", Desc: "Path the contact endpoint is mounted at"},
	{Name: "recipient_email", Default: "support@paperpackaginghub.com", Desc: "Address that receives submissions"},
	{Name: "mail_transport", Default: TransportLog, Desc: "Mail transport: log, smtp, or ses"},
	{Name: "mail_timeout", Default: "30s", Desc: "Upper bound on sending one notification"},

	{Name: "smtp_host", Default: "", Desc: "SMTP server host"},
	{Name: "smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "smtp_username", Default: "", Desc: "SMTP username (empty disables auth)"},
	{Name: "smtp_password", Default: "", Desc: "SMTP password"},
	{Name: "smtp_from_address", Default: "no-reply@paperpackaginghub.com", Desc: "From address on notifications"},
	{Name: "smtp_from_name", Default: "Website Contact Form", Desc: "From display name on notifications"},
	{Name: "smtp_tls", Default: notify.TLSStartTLS, Desc: "SMTP TLS mode: starttls, ssl, or none"},

	{Name: "ses_region", Default: "", Desc: "AWS region for SES"},
	{Name: "ses_access_key", Default: "", Desc: "AWS access key for SES (empty uses the default chain)"},
	{Name: "ses_secret_key", Default: "", Desc: "AWS secret key for SES"},

	{Name: "submission_log_path", Default: "logs/contact_submissions.log", Desc: "File each delivered submission is appended to"},

	{Name: "rate_limit_per_minute", Default: 5, Desc: "Submissions allowed per IP per minute (0 disables)"},
	{Name: "rate_limit_burst", Default: 5, Desc: "Burst size for the in-memory limiter"},
	{Name: "redis_url", Default: "", Desc: "Redis URL for a shared limiter (empty uses memory)"},
}

// AppConfig is the typed form of the app keys.
type AppConfig struct {
	ContactPath    string
	RecipientEmail string
	MailTransport  string
	MailTimeout    time.Duration

	SMTP notify.SMTPConfig
	SES  notify.SESConfig

	SubmissionLogPath string

	RateLimitPerMinute int
	RateLimitBurst     int
	RedisURL           string
}

// appConfigFrom converts loaded values and checks that the selected
// transport has what it needs. All problems are reported together.
func appConfigFrom(v config.AppConfigValues) (AppConfig, error) {
	mailTimeout := v.Duration("mail_timeout", 30*time.Second)
	fromAddr := strings.TrimSpace(v.String("smtp_from_address"))
	fromName := v.String("smtp_from_name")

	cfg := AppConfig{
		ContactPath:    strings.TrimSpace(v.String("contact_path")),
		RecipientEmail: strings.TrimSpace(v.String("recipient_email")),
		MailTransport:  strings.ToLower(strings.TrimSpace(v.String("mail_transport"))),
		MailTimeout:    mailTimeout,
		SMTP: notify.SMTPConfig{
			Host:        strings.TrimSpace(v.String("smtp_host")),
			Port:        v.Int("smtp_port"),
			Username:    v.String("smtp_username"),
			Password:    v.String("smtp_password"),
			FromAddress: fromAddr,
			FromName:    fromName,
			TLS:         strings.ToLower(strings.TrimSpace(v.String("smtp_tls"))),
			Timeout:     mailTimeout,
		},
		SES: notify.SESConfig{
			Region:      strings.TrimSpace(v.String("ses_region")),
			AccessKey:   v.String("ses_access_key"),
			SecretKey:   v.String("ses_secret_key"),
			FromAddress: fromAddr,
			FromName:    fromName,
		},
		SubmissionLogPath:  strings.TrimSpace(v.String("submission_log_path")),
		RateLimitPerMinute: v.Int("rate_limit_per_minute"),
		RateLimitBurst:     v.Int("rate_limit_burst"),
		RedisURL:           strings.TrimSpace(v.String("redis_url")),
	}

	var errs []error
	if !strings.HasPrefix(cfg.ContactPath, "/") {
		errs = append(errs, fmt.Errorf("contact_path must start with /: %q", cfg.ContactPath))
	}
	if cfg.RecipientEmail == "" {
		errs = append(errs, notify.ErrNoRecipient)
	}
	if cfg.SubmissionLogPath == "" {
		errs = append(errs, errors.New("submission_log_path is required"))
	}
	if cfg.RateLimitPerMinute < 0 || cfg.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate_limit_per_minute and rate_limit_burst must not be negative"))
	}

	switch cfg.MailTransport {
	case TransportLog:
	case TransportSMTP:
		if cfg.SMTP.Host == "" {
			errs = append(errs, errors.New("smtp_host is required when mail_transport=smtp"))
		}
		if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
			errs = append(errs, fmt.Errorf("smtp_port out of range: %d", cfg.SMTP.Port))
		}
		switch cfg.SMTP.TLS {
		case notify.TLSStartTLS, notify.TLSSSL, notify.TLSNone:
		default:
			errs = append(errs, fmt.Errorf("smtp_tls must be starttls, ssl, or none: %q", cfg.SMTP.TLS))
		}
		if cfg.SMTP.FromAddress == "" {
			errs = append(errs, errors.New("smtp_from_address is required when mail_transport=smtp"))
		}
	case TransportSES:
		if cfg.SES.Region == "" {
			errs = append(errs, errors.New("ses_region is required when mail_transport=ses"))
		}
		if cfg.SES.FromAddress == "" {
			errs = append(errs, errors.New("smtp_from_address is required when mail_transport=ses"))
		}
		if (cfg.SES.AccessKey == "") != (cfg.SES.SecretKey == "") {
			errs = append(errs, errors.New("ses_access_key and ses_secret_key must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("mail_transport must be log, smtp, or ses: %q", cfg.MailTransport))
	}

	if len(errs) > 0 {
		return AppConfig{}, fmt.Errorf("app config: %w", errors.Join(errs...))
	}
	return cfg, nil
}
