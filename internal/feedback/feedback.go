// Package feedback relays messages through an HTTP mail function. It
// delivers user feedback to the site owner and password reset mail to
// account holders.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const DefaultSubject = "Feedback from Collection Tracker"

var (
	// ErrSendFailed is the only error callers see when the relay could not
	// deliver a message. Details are logged.
	ErrSendFailed   = errors.New("failed to send feedback")
	ErrEmptyMessage = errors.New("feedback message cannot be empty")
)

type Message struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
}

type relayRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo,omitempty"`
}

type Client struct {
	http     *resty.Client
	endpoint string
	to       string
	log      *zap.Logger
}

// NewClient returns a relay client that posts to endpoint with key as a
// bearer token. Feedback is addressed to owner.
func NewClient(endpoint, key, owner string, logger *zap.Logger) *Client {
	client := resty.New().
		SetTimeout(15*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if key != "" {
		client.SetAuthToken(key)
	}

	return &Client{
		http:     client,
		endpoint: endpoint,
		to:       owner,
		log:      logger,
	}
}

// Send delivers user feedback to the owner. A blank subject is replaced
// with DefaultSubject. It does not retry.
func (c *Client) Send(ctx context.Context, msg Message) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return ErrEmptyMessage
	}

	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = DefaultSubject
	}

	return c.post(ctx, relayRequest{
		To:      c.to,
		Subject: subject,
		Text:    text,
		ReplyTo: msg.ReplyTo,
	})
}

// SendMail delivers a message to an arbitrary recipient.
func (c *Client) SendMail(ctx context.Context, to, subject, text string) error {
	return c.post(ctx, relayRequest{To: to, Subject: subject, Text: text})
}

func (c *Client) post(ctx context.Context, body relayRequest) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.endpoint)
	if err != nil {
		c.log.Error("feedback relay call failed", zap.Error(err))
		return ErrSendFailed
	}

	if resp.IsError() {
		c.log.Error("feedback relay returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode())
	}

	c.log.Debug("feedback relayed", zap.String("subject", body.Subject))

	return nil
}
