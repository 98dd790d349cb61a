// Package platform retrieves enriched domain records from the commerce
// backend's admin API. Each retrieval names the fields and relations it
// needs; the pipeline never loads more of a record than its formatter uses.
package platform

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/commercekit/slack-relay/internal/domain"
)

const defaultRetrieveTimeout = 10 * time.Second

// RetrieveQuery narrows a record retrieval to selected fields and expanded
// relations.
type RetrieveQuery struct {
	Fields []string
	Expand []string
}

func (q RetrieveQuery) params() map[string]string {
	params := make(map[string]string, 2)
	if len(q.Fields) > 0 {
		params["fields"] = strings.Join(q.Fields, ",")
	}
	if len(q.Expand) > 0 {
		params["expand"] = strings.Join(q.Expand, ",")
	}
	return params
}

// Client is a resty-backed record provider for orders, returns, swaps, and
// claims.
type Client struct {
	client  *resty.Client
	baseURL string
}

func NewClient(baseURL, apiToken string, timeout time.Duration) (*Client, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultRetrieveTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	if token := strings.TrimSpace(apiToken); token != "" {
		client.SetAuthToken(token)
	}

	return NewClientWithResty(baseURL, client)
}

func NewClientWithResty(baseURL string, client *resty.Client) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("platform api url is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultRetrieveTimeout)
	}
	client.SetRetryCount(0)

	return &Client{client: client, baseURL: trimmed}, nil
}

func (c *Client) RetrieveOrder(ctx context.Context, id string, q RetrieveQuery) (*domain.OrderSnapshot, error) {
	var envelope struct {
		Order orderWire `json:"order"`
	}
	if err := c.retrieve(ctx, "/admin/orders/"+id, q, &envelope); err != nil {
		return nil, fmt.Errorf("failed to retrieve order %q: %w", id, err)
	}
	return envelope.Order.snapshot(), nil
}

func (c *Client) RetrieveReturn(ctx context.Context, id string, q RetrieveQuery) (*domain.ReturnSnapshot, error) {
	var envelope struct {
		Return returnWire `json:"return"`
	}
	if err := c.retrieve(ctx, "/admin/returns/"+id, q, &envelope); err != nil {
		return nil, fmt.Errorf("failed to retrieve return %q: %w", id, err)
	}
	return envelope.Return.snapshot(), nil
}

func (c *Client) RetrieveSwap(ctx context.Context, id string, q RetrieveQuery) (*domain.SwapSnapshot, error) {
	var envelope struct {
		Swap swapWire `json:"swap"`
	}
	if err := c.retrieve(ctx, "/admin/swaps/"+id, q, &envelope); err != nil {
		return nil, fmt.Errorf("failed to retrieve swap %q: %w", id, err)
	}
	return envelope.Swap.snapshot(), nil
}

func (c *Client) RetrieveClaim(ctx context.Context, id string, q RetrieveQuery) (*domain.ClaimSnapshot, error) {
	var envelope struct {
		Claim claimWire `json:"claim"`
	}
	if err := c.retrieve(ctx, "/admin/claims/"+id, q, &envelope); err != nil {
		return nil, fmt.Errorf("failed to retrieve claim %q: %w", id, err)
	}
	return envelope.Claim.snapshot(), nil
}

func (c *Client) retrieve(ctx context.Context, path string, q RetrieveQuery, out any) error {
	response, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(q.params()).
		SetResult(out).
		Get(c.baseURL + path)
	if err != nil {
		return err
	}

	statusCode := response.StatusCode()
	switch {
	case statusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices:
		return fmt.Errorf("platform returned status %d", statusCode)
	}

	return nil
}
