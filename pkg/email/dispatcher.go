package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"almeone-contact-api/internal/domain"
	"almeone-contact-api/pkg/logger"
	"almeone-contact-api/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

const DefaultSendTimeout = 30 * time.Second

type DispatcherConfig struct {
	NotificationEmail string
	SendTimeout       time.Duration
}

// Dispatcher sends the admin notification and the customer acknowledgement
// concurrently. A failure of one never prevents the other.
type Dispatcher struct {
	provider Provider
	// notConfigured is set instead of provider when the selected backend
	// is missing settings.
	notConfigured error
	renderer      *Renderer
	cfg           DispatcherConfig
	log           *slog.Logger
}

func NewDispatcher(provider Provider, renderer *Renderer, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{provider: provider, renderer: renderer, cfg: cfg, log: log}
}

// NewUnconfiguredDispatcher returns a dispatcher whose every Send fails with
// cause, which should wrap ErrProviderNotConfigured.
func NewUnconfiguredDispatcher(cause error, log *slog.Logger) *Dispatcher {
	d := NewDispatcher(nil, nil, DispatcherConfig{}, log)
	d.notConfigured = cause
	return d
}

// ProviderName reports the active backend, or "" when unconfigured.
func (d *Dispatcher) ProviderName() string {
	if d.provider == nil {
		return ""
	}
	return d.provider.Name()
}

func (d *Dispatcher) Send(ctx context.Context, sub domain.Submission) (domain.DispatchOutcome, error) {
	if d.provider == nil {
		if d.notConfigured != nil {
			return domain.DispatchOutcome{}, d.notConfigured
		}
		return domain.DispatchOutcome{}, ErrProviderNotConfigured
	}
	if d.cfg.NotificationEmail == "" {
		return domain.DispatchOutcome{}, &NotConfiguredError{Provider: d.provider.Name(), Missing: []string{"NOTIFICATION_EMAIL"}}
	}

	log := logger.WithContext(ctx, d.log).With("reference_id", sub.ReferenceID, "provider", d.provider.Name())

	var outcome domain.DispatchOutcome
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		outcome.AdminErr = d.deliver(gctx, log, "admin", func() (Message, error) {
			return d.renderer.AdminMessage(sub, d.cfg.NotificationEmail)
		})
		outcome.AdminSent = outcome.AdminErr == nil
		return nil
	})

	g.Go(func() error {
		outcome.CustomerErr = d.deliver(gctx, log, "customer", func() (Message, error) {
			return d.renderer.CustomerMessage(sub)
		})
		outcome.CustomerSent = outcome.CustomerErr == nil
		return nil
	})

	// Workers never return an error, so Wait only synchronises.
	_ = g.Wait()

	return outcome, nil
}

// deliver renders and sends one message within its own timeout.
func (d *Dispatcher) deliver(ctx context.Context, log *slog.Logger, kind string, build func() (Message, error)) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s send panicked: %v", ErrSendFailed, kind, r)
		}
		result := "success"
		if err != nil {
			result = "failure"
		}
		metrics.EmailSendsTotal.WithLabelValues(kind, result).Inc()
		metrics.EmailSendDuration.WithLabelValues(kind).Observe(float64(time.Since(start).Milliseconds()))
	}()

	msg, err := build()
	if err != nil {
		log.Error("failed to render email", "kind", kind, "error", err)
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	if err := d.provider.Send(sendCtx, msg); err != nil {
		log.Error("email send failed", "kind", kind, "to", logger.MaskEmail(msg.To), "error", err)
		return err
	}

	log.Info("email sent", "kind", kind, "to", logger.MaskEmail(msg.To), "duration_ms", time.Since(start).Milliseconds())
	return nil
}
