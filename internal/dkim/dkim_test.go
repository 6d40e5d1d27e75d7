package dkim

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	kp, err := GenerateKey("example.com", "dripq")
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	if kp.PrivateKey == nil {
		t.Fatal("expected private key")
	}
	if kp.DNSName() != "dripq._domainkey.example.com" {
		t.Errorf("unexpected DNS name %q", kp.DNSName())
	}
	record := kp.DNSRecord()
	if !strings.HasPrefix(record, "v=DKIM1; k=rsa; p=") {
		t.Errorf("unexpected DNS record prefix: %q", record)
	}
}

func TestSaveAndLoadPrivateKey(t *testing.T) {
	kp, err := GenerateKey("example.com", "dripq")
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "keys", "dkim.pem")
	if err := kp.SavePrivateKey(path); err != nil {
		t.Fatalf("SavePrivateKey failed: %v", err)
	}

	loaded, err := LoadPrivateKey(path)
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	if !loaded.Equal(kp.PrivateKey) {
		t.Error("loaded key differs from saved key")
	}
}

func TestLoadPrivateKeyMissingFile(t *testing.T) {
	if _, err := LoadPrivateKey("/nonexistent/key.pem"); err == nil {
		t.Error("expected error for missing key file")
	}
}

func TestSignAddsSignatureHeader(t *testing.T) {
	kp, err := GenerateKey("example.com", "dripq")
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	signer := NewSigner(kp.PrivateKey, "example.com", "dripq")
	message := []byte("From: s@example.com\r\n" +
		"To: r@example.org\r\n" +
		"Subject: test\r\n" +
		"\r\n" +
		"body\r\n")

	signed, err := signer.Sign(message)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if !strings.Contains(string(signed), "DKIM-Signature:") {
		t.Error("expected DKIM-Signature header in signed message")
	}
	if !strings.Contains(string(signed), "d=example.com") {
		t.Error("expected signing domain in signature")
	}
	if signer.Domain() != "example.com" {
		t.Errorf("unexpected signer domain %q", signer.Domain())
	}
}
