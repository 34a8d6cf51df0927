// Package email renders and delivers the two notifications produced for
// every accepted contact submission.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message is a single outbound HTML email.
type Message struct {
	To       string
	ReplyTo  string
	Subject  string
	HTMLBody string
	// Tag groups messages in provider dashboards (admin-notification, customer-ack).
	Tag string
}

func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	case strings.TrimSpace(m.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	case strings.TrimSpace(m.HTMLBody) == "":
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// Provider delivers one message. Implementations must honour ctx cancellation.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

var (
	ErrProviderNotConfigured = errors.New("email provider not configured")
	ErrSendFailed            = errors.New("email send failed")
	ErrInvalidMessage        = errors.New("invalid email message")
)

// NotConfiguredError lists the settings a provider is missing.
type NotConfiguredError struct {
	Provider string
	Missing  []string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s: %s missing %s", ErrProviderNotConfigured, e.Provider, strings.Join(e.Missing, ", "))
}

func (e *NotConfiguredError) Is(target error) bool {
	return target == ErrProviderNotConfigured
}
