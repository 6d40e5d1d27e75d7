// Package email provides common email address helpers.
package email

import (
	"net/mail"
	"strings"
)

// Valid reports whether the address parses as a single RFC 5322 address.
func Valid(address string) bool {
	if address == "" {
		return false
	}
	_, err := mail.ParseAddress(address)
	return err == nil
}

// ExtractDomain extracts the domain part from an email address.
// Returns empty string if the address has no usable domain.
func ExtractDomain(address string) string {
	addr, err := mail.ParseAddress(address)
	if err == nil {
		address = addr.Address
	}
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// ExtractDomainOrDefault extracts the domain part from an email address,
// falling back to the provided default when the address has none.
func ExtractDomainOrDefault(address, defaultDomain string) string {
	domain := ExtractDomain(address)
	if domain == "" {
		return defaultDomain
	}
	return domain
}
