package stripeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emberhollow/storefront/internal/config"
)

const defaultBaseURL = "https://api.stripe.com"

// Client is a minimal Stripe Checkout API client. It speaks the
// form-encoded wire format directly rather than pulling in the full SDK.
type Client struct {
	baseURL    string
	secretKey  string
	successURL string
	cancelURL  string
	httpc      *http.Client
}

func New(cfg config.StripeConfig) *Client {
	baseURL := strings.TrimSpace(cfg.APIBaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		httpc:      &http.Client{Timeout: 15 * time.Second},
	}
}

// LineItem is one checkout line. PriceID wins when set; otherwise the item
// is sent as ad-hoc price data.
type LineItem struct {
	PriceID   string
	Name      string
	UnitCents int64
	Quantity  int64
}

type SessionParams struct {
	Email     string
	LineItems []LineItem
	Metadata  map[string]string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) CreateSession(ctx context.Context, params SessionParams) (Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	if params.Email != "" {
		form.Set("customer_email", params.Email)
	}

	for i, item := range params.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.FormatInt(item.Quantity, 10))
		if item.PriceID != "" {
			form.Set(prefix+"[price]", item.PriceID)
			continue
		}
		form.Set(prefix+"[price_data][currency]", "usd")
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitCents, 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
	}
	for key, value := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return Session{}, fmt.Errorf("stripe checkout session: %s", apiErr.Error.Message)
		}
		return Session{}, fmt.Errorf("stripe checkout session: status %d", resp.StatusCode)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return Session{}, err
	}
	if session.ID == "" || session.URL == "" {
		return Session{}, fmt.Errorf("stripe checkout session: incomplete response")
	}
	return session, nil
}
