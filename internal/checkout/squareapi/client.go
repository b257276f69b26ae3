package squareapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emberhollow/storefront/internal/config"
	"github.com/google/uuid"
)

const defaultBaseURL = "https://connect.squareup.com"

type Client struct {
	baseURL     string
	accessToken string
	locationID  string
	redirectURL string
	httpc       *http.Client
}

func New(cfg config.SquareConfig, redirectURL string) *Client {
	baseURL := strings.TrimSpace(cfg.APIBaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: strings.TrimSpace(cfg.AccessToken),
		locationID:  strings.TrimSpace(cfg.LocationID),
		redirectURL: redirectURL,
		httpc:       &http.Client{Timeout: 15 * time.Second},
	}
}

type LineItem struct {
	CatalogObjectID string
	Name            string
	UnitCents       int64
	Quantity        int64
}

type PaymentLink struct {
	OrderID string
	URL     string
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type orderLineItem struct {
	CatalogObjectID string `json:"catalog_object_id,omitempty"`
	Name            string `json:"name,omitempty"`
	Quantity        string `json:"quantity"`
	BasePriceMoney  *money `json:"base_price_money,omitempty"`
}

type createPaymentLinkRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Order          struct {
		LocationID string          `json:"location_id"`
		LineItems  []orderLineItem `json:"line_items"`
	} `json:"order"`
	CheckoutOptions struct {
		RedirectURL string `json:"redirect_url,omitempty"`
	} `json:"checkout_options"`
}

type createPaymentLinkResponse struct {
	PaymentLink struct {
		ID      string `json:"id"`
		URL     string `json:"url"`
		OrderID string `json:"order_id"`
	} `json:"payment_link"`
	Errors []struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Detail   string `json:"detail"`
	} `json:"errors"`
}

// CreatePaymentLink creates a hosted Square checkout. The returned order id
// is the id the payment webhook will later reference.
func (c *Client) CreatePaymentLink(ctx context.Context, items []LineItem) (PaymentLink, error) {
	var payload createPaymentLinkRequest
	payload.IdempotencyKey = uuid.NewString()
	payload.Order.LocationID = c.locationID
	payload.CheckoutOptions.RedirectURL = c.redirectURL
	for _, item := range items {
		line := orderLineItem{
			CatalogObjectID: item.CatalogObjectID,
			Quantity:        strconv.FormatInt(item.Quantity, 10),
		}
		if line.CatalogObjectID == "" {
			line.Name = item.Name
			line.BasePriceMoney = &money{Amount: item.UnitCents, Currency: "USD"}
		}
		payload.Order.LineItems = append(payload.Order.LineItems, line)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return PaymentLink{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/online-checkout/payment-links", bytes.NewReader(body))
	if err != nil {
		return PaymentLink{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return PaymentLink{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return PaymentLink{}, err
	}

	var decoded createPaymentLinkResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return PaymentLink{}, err
	}
	if resp.StatusCode != http.StatusOK || len(decoded.Errors) > 0 {
		if len(decoded.Errors) > 0 {
			return PaymentLink{}, fmt.Errorf("square payment link: %s %s", decoded.Errors[0].Code, decoded.Errors[0].Detail)
		}
		return PaymentLink{}, fmt.Errorf("square payment link: status %d", resp.StatusCode)
	}
	if decoded.PaymentLink.URL == "" || decoded.PaymentLink.OrderID == "" {
		return PaymentLink{}, fmt.Errorf("square payment link: incomplete response")
	}
	return PaymentLink{
		OrderID: decoded.PaymentLink.OrderID,
		URL:     decoded.PaymentLink.URL,
	}, nil
}
