package tiktok

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	paymentdomain "github.com/emberhollow/storefront/internal/payment/domain"
)

const (
	provider = "tiktok"

	// maxTimestampSkew bounds how old a signed notification may be before it
	// is rejected as a possible replay.
	maxTimestampSkew = 5 * time.Minute
)

type Adapter struct {
	appSecret string
	now       func() time.Time
}

func New(appSecret string) *Adapter {
	return &Adapter{
		appSecret: strings.TrimSpace(appSecret),
		now:       time.Now,
	}
}

func (a *Adapter) Provider() string {
	return provider
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get("x-tts-signature"))
	timestamp := strings.TrimSpace(headers.Get("x-tts-timestamp"))
	if signature == "" || timestamp == "" || a.appSecret == "" {
		return paymentdomain.ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	skew := a.now().Sub(time.Unix(unix, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxTimestampSkew {
		return paymentdomain.ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(a.appSecret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

type tiktokEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		OrderID     string `json:"order_id"`
		OrderStatus string `json:"order_status"`
		BuyerEmail  string `json:"buyer_email"`
		Payment     struct {
			TotalAmountCents    int64 `json:"total_amount_cents"`
			SubtotalAmountCents int64 `json:"subtotal_amount_cents"`
			ShippingFeeCents    int64 `json:"shipping_fee_cents"`
			TaxCents            int64 `json:"tax_cents"`
		} `json:"payment"`
		RefundID          string `json:"refund_id"`
		RefundAmountCents int64  `json:"refund_amount_cents"`
		RefundReason      string `json:"refund_reason"`
		LineItems         []struct {
			SkuID        string `json:"sku_id"`
			ProductName  string `json:"product_name"`
			Quantity     int64  `json:"quantity"`
			SalePrice    int64  `json:"sale_price_cents"`
			SellerSKU    string `json:"seller_sku"`
			SKUWickType  string `json:"sku_wick_type"`
			SKUScentName string `json:"sku_scent_name"`
		} `json:"line_items"`
	} `json:"data"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.ParsedEvent, error) {
	var event tiktokEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.EventID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "order_status_change":
		return a.parseOrderStatus(event)
	case "refund_status_change":
		return a.parseRefundStatus(event)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

func (a *Adapter) parseOrderStatus(event tiktokEvent) (*paymentdomain.ParsedEvent, error) {
	data := event.Data
	if strings.TrimSpace(data.OrderID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}
	// The marketplace emits every transition; only a paid order is ours to
	// materialize.
	if !strings.EqualFold(data.OrderStatus, "COMPLETED") && !strings.EqualFold(data.OrderStatus, "AWAITING_SHIPMENT") {
		return nil, paymentdomain.ErrEventIgnored
	}

	lines := make([]orderdomain.CheckoutLine, 0, len(data.LineItems))
	for _, item := range data.LineItems {
		lines = append(lines, orderdomain.CheckoutLine{
			PriceRef:  item.SkuID,
			Slug:      item.SellerSKU,
			Name:      item.ProductName,
			WickType:  item.SKUWickType,
			Scent:     item.SKUScentName,
			Quantity:  item.Quantity,
			UnitCents: item.SalePrice,
		})
	}

	subtotal := data.Payment.SubtotalAmountCents
	if subtotal == 0 {
		subtotal = data.Payment.TotalAmountCents - data.Payment.ShippingFeeCents - data.Payment.TaxCents
	}

	return &paymentdomain.ParsedEvent{
		ProviderEventID: event.EventID,
		EventType:       event.Type,
		Checkout: &orderdomain.CheckoutEvent{
			Provider:             provider,
			SessionID:            data.OrderID,
			Email:                strings.ToLower(strings.TrimSpace(data.BuyerEmail)),
			Lines:                lines,
			TotalCents:           data.Payment.TotalAmountCents,
			ProductSubtotalCents: subtotal,
			ShippingCents:        data.Payment.ShippingFeeCents,
			TaxCents:             data.Payment.TaxCents,
		},
	}, nil
}

func (a *Adapter) parseRefundStatus(event tiktokEvent) (*paymentdomain.ParsedEvent, error) {
	data := event.Data
	if strings.TrimSpace(data.RefundID) == "" || strings.TrimSpace(data.OrderID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	return &paymentdomain.ParsedEvent{
		ProviderEventID: event.EventID,
		EventType:       event.Type,
		Refund: &orderdomain.RefundEvent{
			Provider:         provider,
			ProviderRefundID: data.RefundID,
			OrderID:          data.OrderID,
			AmountCents:      data.RefundAmountCents,
			Reason:           data.RefundReason,
		},
	}, nil
}
