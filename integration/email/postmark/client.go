// Package postmark implements the email sender on Postmark's transactional
// API.
package postmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/movedesk/chatbot/core/email"
	"github.com/movedesk/chatbot/core/fault"
)

// Config maps Postmark credentials and addressing to environment variables.
type Config struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"POSTMARK_SENDER_EMAIL"`
	SupportEmail string `env:"POSTMARK_SUPPORT_EMAIL"`
}

// Configured reports whether delivery credentials are present. When false
// the application falls back to the development sender.
func (c Config) Configured() bool {
	return c.ServerToken != ""
}

type Client struct {
	client *postmark.Client
	config Config
}

// New creates a Postmark-backed email sender. Both tokens are required so
// misconfiguration fails at startup instead of on the first send.
func New(cfg Config) (email.EmailSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", email.ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: AccountToken is required", email.ErrInvalidConfig)
	}
	if !email.ValidAddress(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", email.ErrInvalidConfig)
	}
	if !email.ValidAddress(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", email.ErrInvalidConfig)
	}

	return &Client{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

// SendEmail delivers through Postmark's transactional API. Opens and HTML
// link clicks are tracked; Reply-To routes visitor responses to support.
// Failures are classified as transient so the circuit breaker and retry
// policy treat delivery trouble as infrastructure, not caller error.
func (c *Client) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:       c.config.SenderEmail,
		ReplyTo:    c.config.SupportEmail,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return fault.Unavailable(errors.Join(email.ErrFailedToSendEmail, err))
	}
	if resp.ErrorCode > 0 {
		return fault.Unavailable(errors.Join(
			email.ErrFailedToSendEmail,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		))
	}
	return nil
}
