package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/dripq/dripq/internal/config"
	"github.com/dripq/dripq/internal/dkim"
)

// SMTPMailer relays messages through a configured SMTP smarthost
type SMTPMailer struct {
	addr     string
	host     string
	username string
	password string
	timeout  time.Duration
	hostname string
	signer   *dkim.Signer
	logger   *slog.Logger
}

// NewSMTPMailer creates a mailer for the configured relay
func NewSMTPMailer(cfg config.SMTPConfig, hostname string, logger *slog.Logger) (*SMTPMailer, error) {
	m := &SMTPMailer{
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		host:     cfg.Host,
		username: cfg.Username,
		password: cfg.Password,
		timeout:  cfg.Timeout,
		hostname: hostname,
		logger:   logger,
	}

	if cfg.DKIM.Enabled {
		signer, err := dkim.NewSignerFromFile(cfg.DKIM.KeyFile, cfg.DKIM.Domain, cfg.DKIM.Selector)
		if err != nil {
			return nil, fmt.Errorf("failed to set up DKIM signing: %w", err)
		}
		m.signer = signer
		logger.Info("DKIM signing enabled", "domain", cfg.DKIM.Domain, "selector", cfg.DKIM.Selector)
	}

	return m, nil
}

// Send relays one message through the smarthost
func (m *SMTPMailer) Send(ctx context.Context, from, to, subject, body string) error {
	data := buildMessage(from, to, subject, body, m.hostname)

	if m.signer != nil {
		signed, err := m.signer.Sign(data)
		if err != nil {
			return fmt.Errorf("failed to sign message: %w", err)
		}
		data = signed
	}

	dialer := &net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", m.addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(m.timeout))
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(m.hostname); err != nil {
		return fmt.Errorf("HELO failed: %w", err)
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if m.username != "" {
		auth := sasl.NewPlainClient("", m.username, m.password)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(to, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message data: %w", err)
	}

	if err := c.Quit(); err != nil {
		m.logger.Debug("QUIT failed", "error", err)
	}

	m.logger.Debug("message relayed", "from", from, "to", to)
	return nil
}
