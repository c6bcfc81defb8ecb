// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

// Package notify delivers backup outcome notifications over SMTP. Delivery
// is guarded by a circuit breaker so a dead mail server cannot stall backup
// executions with repeated connection timeouts.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/facilium/facilium/internal/backup"
	"github.com/facilium/facilium/internal/config"
	"github.com/facilium/facilium/internal/logging"
)

// EmailNotifier implements backup.Notifier over SMTP.
type EmailNotifier struct {
	cfg     config.NotifyConfig
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[any]

	// sendFn is swapped in tests to avoid real SMTP connections.
	sendFn func(ctx context.Context, to string, msg string) error
}

// NewEmailNotifier creates the notifier. The breaker opens after repeated
// consecutive failures and recovers on its own once the server is back.
func NewEmailNotifier(cfg config.NotifyConfig) *EmailNotifier {
	n := &EmailNotifier{
		cfg:     cfg,
		timeout: 30 * time.Second,
	}
	n.sendFn = n.sendSMTP
	n.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "smtp",
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Notification circuit breaker state changed")
		},
	})
	return n
}

// NotifySuccess implements backup.Notifier.
func (n *EmailNotifier) NotifySuccess(ctx context.Context, note backup.Notification) error {
	subject := fmt.Sprintf("Backup succeeded: %s", note.ScheduleName)
	body := n.buildBody(note, true)
	return n.deliver(ctx, subject, body)
}

// NotifyFailure implements backup.Notifier.
func (n *EmailNotifier) NotifyFailure(ctx context.Context, note backup.Notification) error {
	subject := fmt.Sprintf("Backup FAILED: %s", note.ScheduleName)
	body := n.buildBody(note, false)
	return n.deliver(ctx, subject, body)
}

func (n *EmailNotifier) buildBody(note backup.Notification, success bool) string {
	var b strings.Builder

	if success {
		fmt.Fprintf(&b, "Backup %q completed successfully.\r\n\r\n", note.ScheduleName)
	} else {
		fmt.Fprintf(&b, "Backup %q failed.\r\n\r\n", note.ScheduleName)
		fmt.Fprintf(&b, "Error: %s\r\n\r\n", note.Error)
	}

	fmt.Fprintf(&b, "Backup ID:    %s\r\n", note.BackupID)
	fmt.Fprintf(&b, "Finished:     %s\r\n", note.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:     %s\r\n", note.Duration.Round(time.Millisecond))
	if success {
		fmt.Fprintf(&b, "Records:      %d\r\n", note.RecordCount)
		fmt.Fprintf(&b, "Size:         %d bytes\r\n", note.SizeBytes)
		fmt.Fprintf(&b, "Encrypted:    %t\r\n", note.Encrypted)
		fmt.Fprintf(&b, "Location:     %s\r\n", note.Locator)
	}

	return b.String()
}

// deliver sends the message to every configured recipient through the
// circuit breaker. Partial delivery returns the first error after trying
// all recipients.
func (n *EmailNotifier) deliver(ctx context.Context, subject, body string) error {
	var firstErr error
	for _, recipient := range n.cfg.Recipients {
		msg := n.buildMessage(recipient, subject, body)
		_, err := n.breaker.Execute(func() (any, error) {
			return nil, n.sendFn(ctx, recipient, msg)
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to notify %s: %w", recipient, err)
		}
	}
	return firstErr
}

// buildMessage constructs the email with headers.
func (n *EmailNotifier) buildMessage(to, subject, body string) string {
	fromName := n.cfg.SMTPFromName
	if fromName == "" {
		fromName = "Facilium Backups"
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", fromName, n.cfg.SMTPFrom)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

// sendSMTP performs one SMTP delivery.
func (n *EmailNotifier) sendSMTP(ctx context.Context, to, msg string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)

	dialer := &net.Dialer{Timeout: n.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, n.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if n.cfg.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: n.cfg.SMTPHost,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if n.cfg.SMTPUser != "" && n.cfg.SMTPPassword != "" {
		auth := smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPassword, n.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(n.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// Quit failures after a successful DATA are not delivery failures.
	_ = client.Quit()
	return nil
}
