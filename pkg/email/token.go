package email

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"almeone-contact-api/pkg/logger"
	"almeone-contact-api/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const DefaultGraphScope = "https://graph.microsoft.com/.default"

// TokenConfig describes a client-credentials grant.
type TokenConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string

	// MaxAttempts bounds acquisition attempts, including the first.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// FetchTimeout bounds one shared acquisition, retries included.
	FetchTimeout time.Duration

	HTTPClient *http.Client
}

// TokenProvider acquires and caches an application access token. Concurrent
// callers share a single in-flight acquisition.
type TokenProvider struct {
	cfg   TokenConfig
	oauth clientcredentials.Config
	log   *slog.Logger

	mu     sync.Mutex
	cached *oauth2.Token
	group  singleflight.Group
}

func NewTokenProvider(cfg TokenConfig, log *slog.Logger) *TokenProvider {
	if cfg.Scope == "" {
		cfg.Scope = DefaultGraphScope
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 10 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &TokenProvider{
		cfg: cfg,
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       []string{cfg.Scope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		log: log,
	}
}

// Token returns a valid access token, fetching a new one when the cached
// token is missing or about to expire. The fetch is shared by every waiting
// caller, so it runs detached from ctx; ctx only bounds this caller's wait.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.cached.Valid() {
		tok := p.cached.AccessToken
		p.mu.Unlock()
		return tok, nil
	}
	p.mu.Unlock()

	ch := p.group.DoChan("token", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.FetchTimeout)
		defer cancel()

		tok, err := p.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.cached = tok
		p.mu.Unlock()
		return tok.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token, e.g. after the API answered 401.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

func (p *TokenProvider) fetch(ctx context.Context) (*oauth2.Token, error) {
	log := logger.WithContext(ctx, p.log).With(
		"tenant", logger.Truncate(p.cfg.TenantID, 8),
		"client", logger.Truncate(p.cfg.ClientID, 8),
	)
	httpCtx := context.WithValue(ctx, oauth2.HTTPClient, p.cfg.HTTPClient)

	var (
		tok     *oauth2.Token
		attempt int
	)
	operation := func() error {
		attempt++
		t, err := p.oauth.Token(httpCtx)
		if err == nil {
			tok = t
			metrics.TokenAttemptsTotal.WithLabelValues("success").Inc()
			return nil
		}

		te := classifyTokenError(err)
		metrics.TokenAttemptsTotal.WithLabelValues(string(te.Class)).Inc()
		log.Warn("token acquisition attempt failed",
			"attempt", attempt,
			"max_attempts", p.cfg.MaxAttempts,
			"class", te.Class,
			"status", te.Status,
			"code", te.Code,
		)
		if te.Permanent() {
			return backoff.Permanent(te)
		}
		return te
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialInterval
	b.MaxInterval = p.cfg.MaxInterval
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.cfg.MaxAttempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		te := classifyTokenError(err)
		log.Error("token acquisition failed", "class", te.Class, "attempts", attempt, "hint", te.Hint())
		return nil, te
	}

	p.inspect(log, tok.AccessToken)
	return tok, nil
}

// inspect warns when the token does not carry the Mail.Send application role.
// The signature is not checked; the API will reject a forged token anyway.
func (p *TokenProvider) inspect(log *slog.Logger, accessToken string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		log.Debug("access token is not a JWT, skipping role inspection")
		return
	}

	raw, _ := claims["roles"].([]interface{})
	roles := lo.FilterMap(raw, func(r interface{}, _ int) (string, bool) {
		s, ok := r.(string)
		return s, ok
	})
	if !lo.Contains(roles, "Mail.Send") {
		log.Warn("access token lacks Mail.Send role", "roles", roles)
	}
}
