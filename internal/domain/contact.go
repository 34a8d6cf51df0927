package domain

import (
	"context"
	"time"
)

// SubmissionRequest represents a contact form submission as posted by the website.
type SubmissionRequest struct {
	Name           string `json:"name" example:"Jane Doe"`
	Email          string `json:"email" example:"jane@example.com"`
	Company        string `json:"company,omitempty" example:"Acme Corp"`
	Phone          string `json:"phone,omitempty" example:"+974 5555 0000"`
	Subject        string `json:"subject,omitempty" example:"Partnership inquiry"`
	Message        string `json:"message" example:"We would like to discuss a project with you."`
	RecaptchaToken string `json:"recaptchaToken,omitempty"`
}

// ValidationResult is the outcome of sanitising and validating a submission.
// Sanitized is only meaningful when Valid is true.
type ValidationResult struct {
	Valid     bool
	Errors    []string
	Sanitized SubmissionRequest
}

// RateLimitDecision is the limiter verdict for one request.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, rounded up to whole seconds.
func (d RateLimitDecision) RetryAfter(now time.Time) time.Duration {
	left := d.ResetAt.Sub(now)
	if left <= 0 {
		return time.Second
	}
	return (left + time.Second - 1).Truncate(time.Second)
}

// CaptchaResult reports whether the submission may proceed past the CAPTCHA check.
type CaptchaResult struct {
	Success bool
	// Verified is true only when the provider positively confirmed the token.
	Verified bool
	Reason   string
}

// RequestMeta is the request context attached to the admin notification.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Origin    string
	RequestID string
}

// Submission is a validated request bound to its reference id.
type Submission struct {
	Request     SubmissionRequest
	ReferenceID string
	SubmittedAt time.Time
	Meta        RequestMeta
}

// DispatchOutcome records which of the two notifications went out.
type DispatchOutcome struct {
	AdminSent    bool
	CustomerSent bool
	AdminErr     error
	CustomerErr  error
}

func (o DispatchOutcome) AllSent() bool  { return o.AdminSent && o.CustomerSent }
func (o DispatchOutcome) NoneSent() bool { return !o.AdminSent && !o.CustomerSent }

// DeliveryStatus summarises a dispatch outcome for the client.
type DeliveryStatus string

const (
	DeliveryFull    DeliveryStatus = "full"
	DeliveryPartial DeliveryStatus = "partial"
)

// SubmissionResult is returned for every submission that reached dispatch and
// had at least one notification delivered.
type SubmissionResult struct {
	ReferenceID string
	Outcome     DispatchOutcome
	Delivery    DeliveryStatus
	RateLimit   RateLimitDecision
	SubmittedAt time.Time
}

// Validator sanitises and validates raw submissions.
type Validator interface {
	Validate(raw SubmissionRequest) ValidationResult
}

// RateLimiter admits or rejects a client. It never fails; store problems fail open.
type RateLimiter interface {
	CheckAndConsume(ctx context.Context, clientKey string) RateLimitDecision
}

// CaptchaVerifier checks an anti-bot token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) CaptchaResult
}

// EmailDispatcher sends the admin notification and the customer acknowledgement.
// It returns an error only when it cannot attempt any send at all.
type EmailDispatcher interface {
	Send(ctx context.Context, submission Submission) (DispatchOutcome, error)
}

// ContactUsecase drives a submission through the relay.
type ContactUsecase interface {
	Submit(ctx context.Context, req SubmissionRequest, meta RequestMeta) (*SubmissionResult, error)
}
