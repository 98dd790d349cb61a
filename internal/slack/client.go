// Package slack is a minimal Slack Web API client covering chat.postMessage,
// the only method the notification pipeline needs.
package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/commercekit/slack-relay/internal/domain"
)

const (
	defaultBaseURL     = "https://slack.com/api"
	defaultPostTimeout = 10 * time.Second
)

// Attachment is a legacy Slack attachment. The pipeline never formats
// attachments, but Message carries the field so resend can post a stored
// payload with attachments explicitly stripped.
type Attachment struct {
	Name   string `json:"name,omitempty"`
	Base64 string `json:"base64,omitempty"`
	Type   string `json:"type,omitempty"`
}

// Message is the chat.postMessage request body.
type Message struct {
	Channel     string         `json:"channel"`
	Text        string         `json:"text"`
	Blocks      []domain.Block `json:"blocks,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// PostResponse is the Slack acknowledgement. OK false is an expected,
// actionable outcome, not an error.
type PostResponse struct {
	OK      bool   `json:"ok"`
	Channel string `json:"channel,omitempty"`
	TS      string `json:"ts,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client posts messages to the Slack Web API.
type Client struct {
	client  *resty.Client
	baseURL string
}

func NewClient(apiToken string, timeout time.Duration) (*Client, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultPostTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	client.SetAuthToken(apiToken)

	return NewClientWithResty(apiToken, defaultBaseURL, client)
}

func NewClientWithResty(apiToken, baseURL string, client *resty.Client) (*Client, error) {
	if strings.TrimSpace(apiToken) == "" {
		return nil, fmt.Errorf("slack api token is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("slack base url is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultPostTimeout)
	}
	client.SetRetryCount(0)
	client.SetAuthToken(apiToken)

	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// PostMessage posts a message and returns Slack's acknowledgement. It fails
// only on transport-level problems (unreachable API, timeout, non-2xx HTTP
// status); an ok:false acknowledgement comes back as a response, not an
// error.
func (c *Client) PostMessage(ctx context.Context, msg Message) (*PostResponse, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("slack client is not initialized")
	}
	if strings.TrimSpace(msg.Channel) == "" {
		return nil, fmt.Errorf("%w: channel is required", domain.ErrValidation)
	}

	var ack PostResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetBody(msg).
		SetResult(&ack).
		Post(c.baseURL + "/chat.postMessage")
	if err != nil {
		return nil, &APIError{
			Message:   "chat.postMessage request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &APIError{
			Message:   "slack returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &APIError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("slack returned status %d", statusCode),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	return &ack, nil
}
