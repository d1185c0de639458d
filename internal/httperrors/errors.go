// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns transport failures talking to the Query Service into
// user-friendly messages with troubleshooting hints.
package httperrors

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// Category is the kind of transport failure.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryTimeout
	CategoryDNS
	CategoryRefused
	CategoryTLS
	CategoryServer
	CategoryAuth
)

// Classify detects the failure category of err.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	switch {
	case isTimeoutError(err):
		return CategoryTimeout
	case isDNSError(err):
		return CategoryDNS
	case isConnectionRefusedError(err):
		return CategoryRefused
	case isSSLError(err):
		return CategoryTLS
	case isAuthError(err.Error()):
		return CategoryAuth
	case isServerError(err.Error()):
		return CategoryServer
	}
	return CategoryUnknown
}

// FormatNetworkError renders a styled, multi-line explanation of err.
// activity describes what was being attempted ("executing query").
func FormatNetworkError(err error, activity string, host string) string {
	if err == nil {
		return ""
	}
	if host == "" {
		host = "the Query Service"
	}

	var b strings.Builder
	title, hints := describe(Classify(err), host)
	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprintf("%s while %s", title, activity))
	b.WriteString("\n\n")
	for _, h := range hints {
		b.WriteString("  • ")
		b.WriteString(h)
		b.WriteString("\n")
	}
	return b.String()
}

func describe(c Category, host string) (string, []string) {
	switch c {
	case CategoryTimeout:
		return "Connection timeout", []string{
			"The server took too long to respond",
			"Long-running statements may need a larger request_timeout",
			"Check that " + host + " is not overloaded",
		}
	case CategoryDNS:
		return "Cannot resolve server address", []string{
			"Check the backend_url setting (sqlbench dbinfo)",
			"Verify DNS settings and network connectivity",
		}
	case CategoryRefused:
		return "Connection refused", []string{
			host + " is not accepting connections",
			"Start it with 'sqlbench serve' or check the port",
		}
	case CategoryTLS:
		return "Secure connection failed", []string{
			"Certificate or TLS handshake problem",
			"Check your system clock and proxy settings",
		}
	case CategoryAuth:
		return "Authentication failed", []string{
			"Store a valid API token with 'sqlbench connect --backend <url>'",
			"Or export SQLBENCH_TOKEN",
		}
	case CategoryServer:
		return "Server error", []string{
			host + " reported an internal error",
			"Retry the statement in a few moments",
		}
	}
	return "Cannot reach " + host, []string{
		"Check your network connection",
		"Run 'sqlbench status' to test connectivity",
	}
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate")
}

func isAuthError(errStr string) bool {
	lower := strings.ToLower(errStr)
	return strings.Contains(lower, "401") ||
		strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "forbidden")
}

// isServerError checks if the error indicates a server-side problem (5xx errors).
func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	return strings.Contains(lower, "500") ||
		strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") ||
		strings.Contains(lower, "504") ||
		strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable")
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
