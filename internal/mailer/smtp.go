package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"go.uber.org/zap"

	"lanta-sber-sender/internal/config"
)

// SMTPSender delivers messages through an authenticated relay
type SMTPSender struct {
	cfg       config.SMTPConfig
	tlsConfig *tls.Config
	logger    *zap.Logger
}

// NewSMTPSender creates a sender for the configured relay
func NewSMTPSender(cfg config.SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host},
		logger:    logger,
	}
}

// Send delivers msg in one SMTP session: STARTTLS (when enabled), AUTH PLAIN
// (when a username is set), then MAIL / RCPT / DATA.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	raw, err := Build(msg)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to connect to smtp %s: %w", s.cfg.Addr(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start smtp session: %w", err)
	}
	defer c.Close()

	if s.cfg.StartTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return fmt.Errorf("smtp server %s does not support STARTTLS", s.cfg.Addr())
		}
		if err := c.StartTLS(s.tlsConfig); err != nil {
			return fmt.Errorf("failed to start tls: %w", err)
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := c.Mail(msg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM %s failed: %w", msg.From, err)
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s failed: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp server rejected message: %w", err)
	}

	if err := c.Quit(); err != nil {
		return fmt.Errorf("smtp QUIT failed: %w", err)
	}

	s.logger.Info("Mail sent",
		zap.String("relay", s.cfg.Addr()),
		zap.Strings("to", msg.To),
		zap.Int("attachments", len(msg.Attachments)),
		zap.Int("bytes", len(raw)),
	)
	return nil
}
