// Package captcha verifies reCAPTCHA tokens against Google's siteverify API.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"almeone-contact-api/internal/domain"
	"almeone-contact-api/pkg/logger"
)

const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Reasons reported in domain.CaptchaResult.
const (
	ReasonNoSecret      = "no_secret"
	ReasonNoToken       = "no_token"
	ReasonVerified      = "verified"
	ReasonRejected      = "rejected"
	ReasonProviderError = "provider_error"
)

// SiteVerifyResponse represents Google's ReCAPTCHA verification response
type SiteVerifyResponse struct {
	Success     bool     `json:"success"`
	Score       float64  `json:"score,omitempty"`
	Action      string   `json:"action,omitempty"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
}

type Config struct {
	Secret    string
	VerifyURL string
	// Strict blocks submissions the provider rejects or cannot check.
	Strict  bool
	Timeout time.Duration
}

type Verifier struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

func NewVerifier(cfg Config, client *http.Client, log *slog.Logger) *Verifier {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Verifier{cfg: cfg, client: client, log: log}
}

func (v *Verifier) Strict() bool {
	return v.cfg.Strict
}

// Verify checks token. Without a configured secret or a token it succeeds.
// Provider failures and rejections succeed too unless the verifier is strict;
// Verified tells the caller whether the token was actually confirmed.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) domain.CaptchaResult {
	log := logger.WithContext(ctx, v.log)

	if v.cfg.Secret == "" {
		return domain.CaptchaResult{Success: true, Reason: ReasonNoSecret}
	}
	if strings.TrimSpace(token) == "" {
		return domain.CaptchaResult{Success: true, Reason: ReasonNoToken}
	}

	resp, err := v.siteVerify(ctx, token, remoteIP)
	if err != nil {
		log.Warn("captcha verification unavailable", "error", err, "strict", v.cfg.Strict)
		return domain.CaptchaResult{Success: !v.cfg.Strict, Reason: ReasonProviderError}
	}

	if !resp.Success {
		log.Warn("captcha rejected", "error_codes", resp.ErrorCodes, "hostname", resp.Hostname, "strict", v.cfg.Strict)
		return domain.CaptchaResult{Success: !v.cfg.Strict, Reason: ReasonRejected}
	}

	return domain.CaptchaResult{Success: true, Verified: true, Reason: ReasonVerified}
}

func (v *Verifier) siteVerify(ctx context.Context, token, remoteIP string) (*SiteVerifyResponse, error) {
	form := url.Values{
		"secret":   {v.cfg.Secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteverify request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("siteverify returned status %d", res.StatusCode)
	}

	var out SiteVerifyResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<16)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode siteverify response: %w", err)
	}
	return &out, nil
}
