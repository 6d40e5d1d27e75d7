package mailer

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildMessageHeaders(t *testing.T) {
	data := buildMessage("sender@example.com", "rcpt@example.org", "Hello", "<p>Hi</p>", "mail.local")
	msg := string(data)

	for _, want := range []string{
		"From: sender@example.com\r\n",
		"To: rcpt@example.org\r\n",
		"Subject: Hello\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: text/html; charset=utf-8\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing header %q", want)
		}
	}

	if !strings.Contains(msg, "@example.com>\r\n") {
		t.Error("Message-ID should use the sender domain")
	}
	if !strings.Contains(msg, "\r\n\r\n<p>Hi</p>\r\n") {
		t.Error("body should follow a blank line after the headers")
	}
}

func TestBuildMessageIDFallsBackToHostname(t *testing.T) {
	data := buildMessage("not-an-address", "rcpt@example.org", "Hello", "body", "mail.local")

	if !strings.Contains(string(data), "@mail.local>\r\n") {
		t.Error("Message-ID should fall back to the hostname when the sender has no domain")
	}
}

func TestBuildMessageNormalizesLineEndings(t *testing.T) {
	data := buildMessage("s@example.com", "r@example.org", "s", "line1\nline2\r\nline3", "h")

	body := data[bytes.Index(data, []byte("\r\n\r\n"))+4:]
	if !bytes.Equal(body, []byte("line1\r\nline2\r\nline3\r\n")) {
		t.Errorf("unexpected body bytes: %q", body)
	}
}
