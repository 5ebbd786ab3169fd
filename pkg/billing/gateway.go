package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Checkout modes.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// CheckoutParams describes a hosted checkout session to create.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	Mode       string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Gateway is the capability interface for the external billing provider.
// Implementations create customers and hosted checkout sessions; webhook
// verification lives on WebhookVerifier so handlers can be tested with a
// signing fake.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error)
}

// Client talks to the provider's REST API with form-encoded requests.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a billing API client. The key may be empty; calls then
// fail with a configuration error rather than at construction time.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://api.stripe.com/v1",
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithBaseURL creates a client pointed at a custom API base URL.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// CreateCustomer registers a billing customer for the given account and
// returns the provider customer reference.
func (c *Client) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[userId]", userID)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/customers", form, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateCheckoutSession creates a hosted checkout session and returns its
// redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	form := url.Values{}
	form.Set("customer", p.CustomerID)
	form.Set("mode", p.Mode)
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", p.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	for k, v := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/checkout/sessions", form, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("billing request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read billing response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("billing API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("billing API error: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode billing response: %w", err)
	}
	return nil
}
