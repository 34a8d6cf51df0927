package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	Sender       string
}

// PostmarkProvider sends through Postmark's transactional API.
type PostmarkProvider struct {
	client *postmark.Client
	cfg    PostmarkConfig
}

func NewPostmarkProvider(cfg PostmarkConfig) (*PostmarkProvider, error) {
	var missing []string
	if cfg.ServerToken == "" {
		missing = append(missing, "POSTMARK_SERVER_TOKEN")
	}
	if cfg.Sender == "" {
		missing = append(missing, "SENDER_EMAIL")
	}
	if len(missing) > 0 {
		return nil, &NotConfiguredError{Provider: "postmark", Missing: missing}
	}

	return &PostmarkProvider{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		cfg:    cfg,
	}, nil
}

func (p *PostmarkProvider) Name() string { return "postmark" }

// Send tracks opens only; link tracking would rewrite URLs in the quoted
// customer message.
func (p *PostmarkProvider) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:       p.cfg.Sender,
		ReplyTo:    msg.ReplyTo,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTMLBody,
		TrackOpens: true,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
