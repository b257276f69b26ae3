package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	paymentdomain "github.com/emberhollow/storefront/internal/payment/domain"
)

const provider = "stripe"

type Adapter struct {
	webhookSecret string
}

func New(webhookSecret string) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(webhookSecret)}
}

func (a *Adapter) Provider() string {
	return provider
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" || a.webhookSecret == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

// parseSignatureHeader splits "t=...,v1=...,v1=..." into the timestamp and
// the candidate signatures.
func parseSignatureHeader(header string) (string, []string, error) {
	var (
		timestamp  string
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, paymentdomain.ErrInvalidSignature
	}
	return timestamp, signatures, nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSession struct {
	ID              string `json:"id"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	AmountTotal    int64 `json:"amount_total"`
	AmountSubtotal int64 `json:"amount_subtotal"`
	TotalDetails   struct {
		AmountDiscount int64 `json:"amount_discount"`
		AmountShipping int64 `json:"amount_shipping"`
		AmountTax      int64 `json:"amount_tax"`
	} `json:"total_details"`
	Metadata  map[string]string `json:"metadata"`
	LineItems struct {
		Data []struct {
			Quantity    int64  `json:"quantity"`
			Description string `json:"description"`
			Price       struct {
				ID         string            `json:"id"`
				UnitAmount int64             `json:"unit_amount"`
				Metadata   map[string]string `json:"metadata"`
			} `json:"price"`
		} `json:"data"`
	} `json:"line_items"`
}

type charge struct {
	ID             string            `json:"id"`
	PaymentIntent  string            `json:"payment_intent"`
	AmountRefunded int64             `json:"amount_refunded"`
	Metadata       map[string]string `json:"metadata"`
	Refunds        struct {
		Data []struct {
			ID     string `json:"id"`
			Reason string `json:"reason"`
		} `json:"data"`
	} `json:"refunds"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.ParsedEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		return a.parseCheckoutSession(event)
	case "charge.refunded":
		return a.parseChargeRefunded(event)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

func (a *Adapter) parseCheckoutSession(event stripeEvent) (*paymentdomain.ParsedEvent, error) {
	var session checkoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	email := session.CustomerDetails.Email
	if email == "" {
		email = session.CustomerEmail
	}

	checkout := &orderdomain.CheckoutEvent{
		Provider:             provider,
		SessionID:            session.ID,
		Email:                strings.ToLower(strings.TrimSpace(email)),
		TotalCents:           session.AmountTotal,
		ProductSubtotalCents: session.AmountSubtotal,
		ShippingCents:        session.TotalDetails.AmountShipping,
		TaxCents:             session.TotalDetails.AmountTax,
		DiscountCents:        session.TotalDetails.AmountDiscount,
		UserID:               parseID(session.Metadata["user_id"]),
		PromotionID:          parseID(session.Metadata["promotion_id"]),
		PointsRedeemed:       parseInt(session.Metadata["points_redeemed"]),
	}
	for _, item := range session.LineItems.Data {
		checkout.Lines = append(checkout.Lines, orderdomain.CheckoutLine{
			PriceRef:  item.Price.ID,
			Slug:      item.Price.Metadata["slug"],
			Name:      item.Description,
			WickType:  item.Price.Metadata["wick_type"],
			Scent:     item.Price.Metadata["scent"],
			Quantity:  item.Quantity,
			UnitCents: item.Price.UnitAmount,
		})
	}

	return &paymentdomain.ParsedEvent{
		ProviderEventID: event.ID,
		EventType:       event.Type,
		Checkout:        checkout,
	}, nil
}

func (a *Adapter) parseChargeRefunded(event stripeEvent) (*paymentdomain.ParsedEvent, error) {
	var ch charge
	if err := json.Unmarshal(event.Data.Object, &ch); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(ch.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	// Checkout stamps the session id onto the payment intent metadata so the
	// refund can find its order.
	orderID := ch.Metadata["order_id"]
	if orderID == "" {
		orderID = ch.PaymentIntent
	}

	refundID := ch.ID
	reason := ""
	if len(ch.Refunds.Data) > 0 {
		refundID = ch.Refunds.Data[0].ID
		reason = ch.Refunds.Data[0].Reason
	}

	return &paymentdomain.ParsedEvent{
		ProviderEventID: event.ID,
		EventType:       event.Type,
		Refund: &orderdomain.RefundEvent{
			Provider:         provider,
			ProviderRefundID: refundID,
			OrderID:          orderID,
			AmountCents:      ch.AmountRefunded,
			Reason:           reason,
		},
	}, nil
}

func parseID(value string) *snowflake.ID {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}

func parseInt(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	var n int64
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return 0
	}
	return n
}
