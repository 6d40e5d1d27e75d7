// Package mailer hands finished messages to the outbound transport.
// The SMTP mailer relays through a configured smarthost; the sandbox
// mailer captures messages locally for inspection instead of sending.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dripq/dripq/internal/email"
)

// Mailer sends one message to one recipient
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// buildMessage constructs the RFC 5322 message data. The body is
// treated as HTML, matching what campaign composers submit.
func buildMessage(from, to, subject, body, hostname string) []byte {
	var buf bytes.Buffer

	domain := email.ExtractDomainOrDefault(from, hostname)

	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.New().String(), domain))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("\r\n")

	// Normalize bare LF to CRLF for SMTP
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	buf.WriteString(strings.ReplaceAll(normalized, "\n", "\r\n"))
	buf.WriteString("\r\n")

	return buf.Bytes()
}
