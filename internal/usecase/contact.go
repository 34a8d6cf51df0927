package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"almeone-contact-api/internal/domain"
	"almeone-contact-api/pkg/apperror"
	"almeone-contact-api/pkg/email"
	"almeone-contact-api/pkg/logger"
	"almeone-contact-api/pkg/metrics"
)

const (
	MsgSuccess        = "Thank you for your message! We have received your inquiry and will respond within 24 hours."
	MsgPartialSuccess = "Thank you for your message! We have received your inquiry. Due to a technical issue, some notifications may be delayed, but we will still respond within 24 hours."
	MsgTotalFailure   = "Your message was received and logged securely, but there was an issue with email notifications. Our team will still review your inquiry and respond within 24 hours."
	MsgValidation     = "Please correct the following errors:"
	MsgRateLimited    = "Too many requests. Please wait before submitting again."
	MsgNotConfigured  = "Email service is temporarily unavailable. Please try again later or contact us directly."
	MsgCaptchaFailed  = "CAPTCHA verification failed"
)

type contactUsecase struct {
	validator  domain.Validator
	limiter    domain.RateLimiter
	captcha    domain.CaptchaVerifier
	dispatcher domain.EmailDispatcher
	log        *slog.Logger
	now        func() time.Time
}

func NewContactUsecase(
	validator domain.Validator,
	limiter domain.RateLimiter,
	captcha domain.CaptchaVerifier,
	dispatcher domain.EmailDispatcher,
	log *slog.Logger,
) domain.ContactUsecase {
	if log == nil {
		log = logger.Nop()
	}
	return &contactUsecase{
		validator:  validator,
		limiter:    limiter,
		captcha:    captcha,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// Submit runs one submission through rate limiting, validation, CAPTCHA and
// dispatch. Every returned error is an *apperror.AppError.
func (u *contactUsecase) Submit(ctx context.Context, req domain.SubmissionRequest, meta domain.RequestMeta) (*domain.SubmissionResult, error) {
	log := logger.WithContext(ctx, u.log)

	decision := u.limiter.CheckAndConsume(ctx, meta.ClientIP)
	if !decision.Allowed {
		metrics.RateLimitedTotal.Inc()
		metrics.SubmissionsTotal.WithLabelValues("rate_limited").Inc()
		log.Warn("submission rate limited", "client", meta.ClientIP, "reset_at", decision.ResetAt)
		return nil, apperror.RateLimited(MsgRateLimited, decision.RetryAfter(u.now()))
	}

	result := u.validator.Validate(req)
	if !result.Valid {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		log.Info("submission rejected by validation", "errors", len(result.Errors))
		return nil, apperror.Validation(MsgValidation, result.Errors)
	}
	sanitized := result.Sanitized

	check := u.captcha.Verify(ctx, sanitized.RecaptchaToken, meta.ClientIP)
	metrics.CaptchaChecksTotal.WithLabelValues(check.Reason).Inc()
	log.Info("captcha checked", "success", check.Success, "verified", check.Verified, "reason", check.Reason)
	if !check.Success {
		metrics.SubmissionsTotal.WithLabelValues("captcha_rejected").Inc()
		return nil, apperror.Validation(MsgValidation, []string{MsgCaptchaFailed})
	}

	now := u.now()
	sub := domain.Submission{
		Request:     sanitized,
		ReferenceID: NewReferenceID(now),
		SubmittedAt: now,
		Meta:        meta,
	}
	log = log.With("reference_id", sub.ReferenceID)

	// The client may disconnect; the sends still run to completion.
	outcome, err := u.dispatcher.Send(context.WithoutCancel(ctx), sub)
	if err != nil {
		return nil, u.dispatchError(log, sub.ReferenceID, err)
	}

	if outcome.NoneSent() {
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		metrics.AdminNotificationFailuresTotal.Inc()
		cause := errors.Join(outcome.AdminErr, outcome.CustomerErr)
		log.Error("all notifications failed", "admin_error", outcome.AdminErr, "customer_error", outcome.CustomerErr)
		return nil, classifyDispatchFailure(cause).WithReference(sub.ReferenceID)
	}

	delivery := domain.DeliveryFull
	if !outcome.AllSent() {
		delivery = domain.DeliveryPartial
		if !outcome.AdminSent {
			// The submitter got an acknowledgement but nobody was told about the lead.
			metrics.AdminNotificationFailuresTotal.Inc()
			log.Error("admin notification failed, lead only acknowledged to customer",
				"error", outcome.AdminErr,
				"customer", logger.MaskEmail(sanitized.Email),
			)
		} else {
			log.Warn("customer acknowledgement failed", "error", outcome.CustomerErr)
		}
	}
	metrics.SubmissionsTotal.WithLabelValues(string(delivery)).Inc()
	log.Info("submission relayed", "delivery", delivery)

	return &domain.SubmissionResult{
		ReferenceID: sub.ReferenceID,
		Outcome:     outcome,
		Delivery:    delivery,
		RateLimit:   decision,
		SubmittedAt: now,
	}, nil
}

func (u *contactUsecase) dispatchError(log *slog.Logger, ref string, err error) *apperror.AppError {
	if errors.Is(err, email.ErrProviderNotConfigured) {
		metrics.SubmissionsTotal.WithLabelValues("not_configured").Inc()
		log.Error("email provider not configured", "error", err)

		appErr := apperror.NotConfigured(MsgNotConfigured, err).WithReference(ref)
		var nc *email.NotConfiguredError
		if errors.As(err, &nc) {
			appErr.WithDebug("provider", nc.Provider).WithDebug("missing", nc.Missing)
		}
		return appErr
	}

	metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
	log.Error("dispatch failed", "error", err)
	return classifyDispatchFailure(err).WithReference(ref)
}

// classifyDispatchFailure separates credential problems from temporary ones so
// operators can tell them apart in logs and debug output.
func classifyDispatchFailure(err error) *apperror.AppError {
	var te *email.TokenError
	if errors.As(err, &te) {
		if te.Permanent() {
			return apperror.ProviderAuth(MsgTotalFailure, err).
				WithDebug("tokenError", string(te.Class)).
				WithDebug("hint", te.Hint())
		}
		return apperror.ProviderTransient(MsgTotalFailure, err).WithDebug("tokenError", string(te.Class))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.ProviderTransient(MsgTotalFailure, err)
	}
	return apperror.DispatchFailed(MsgTotalFailure, err)
}
