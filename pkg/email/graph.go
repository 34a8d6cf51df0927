package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"almeone-contact-api/pkg/logger"
)

const DefaultGraphAPIURL = "https://graph.microsoft.com/v1.0"

type GraphConfig struct {
	APIURL string
	// Sender is the mailbox messages are sent from (users/{Sender}/sendMail).
	Sender     string
	HTTPClient *http.Client
}

// GraphProvider sends mail through the Microsoft Graph sendMail endpoint
// using an application token.
type GraphProvider struct {
	cfg    GraphConfig
	tokens *TokenProvider
	log    *slog.Logger
}

type graphAddress struct {
	Address string `json:"address"`
}

type graphRecipient struct {
	EmailAddress graphAddress `json:"emailAddress"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphMessage struct {
	Subject      string           `json:"subject"`
	Body         graphBody        `json:"body"`
	ToRecipients []graphRecipient `json:"toRecipients"`
	ReplyTo      []graphRecipient `json:"replyTo,omitempty"`
}

type graphSendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

func NewGraphProvider(cfg GraphConfig, tokens *TokenProvider, log *slog.Logger) *GraphProvider {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultGraphAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GraphProvider{cfg: cfg, tokens: tokens, log: log}
}

func (g *GraphProvider) Name() string { return "graph" }

func (g *GraphProvider) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	token, err := g.tokens.Token(ctx)
	if err != nil {
		return err
	}

	payload := graphSendMailRequest{
		Message: graphMessage{
			Subject:      msg.Subject,
			Body:         graphBody{ContentType: "HTML", Content: msg.HTMLBody},
			ToRecipients: []graphRecipient{{EmailAddress: graphAddress{Address: msg.To}}},
		},
		SaveToSentItems: true,
	}
	if msg.ReplyTo != "" {
		payload.Message.ReplyTo = []graphRecipient{{EmailAddress: graphAddress{Address: msg.ReplyTo}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendMail payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", g.cfg.APIURL, url.PathEscape(g.cfg.Sender))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sendMail request: %v", ErrSendFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	if res.StatusCode == http.StatusUnauthorized {
		g.tokens.Invalidate()
	}
	logger.WithContext(ctx, g.log).Warn("graph sendMail rejected",
		"status", res.StatusCode,
		"to", logger.MaskEmail(msg.To),
	)
	return fmt.Errorf("%w: sendMail status %d: %s", ErrSendFailed, res.StatusCode, strings.TrimSpace(string(detail)))
}
