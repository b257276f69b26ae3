package square

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	paymentdomain "github.com/emberhollow/storefront/internal/payment/domain"
)

const provider = "square"

// Adapter verifies Square webhooks. Square signs the notification URL
// concatenated with the raw body, so the adapter must know the exact URL the
// subscription was registered with.
type Adapter struct {
	signatureKey string
	webhookURL   string
}

func New(signatureKey, webhookURL string) *Adapter {
	return &Adapter{
		signatureKey: strings.TrimSpace(signatureKey),
		webhookURL:   strings.TrimSpace(webhookURL),
	}
}

func (a *Adapter) Provider() string {
	return provider
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get("x-square-hmacsha256-signature"))
	if signature == "" || a.signatureKey == "" {
		return paymentdomain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(a.signatureKey))
	_, _ = mac.Write([]byte(a.webhookURL))
	_, _ = mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

type squareEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type paymentObject struct {
	Payment struct {
		ID          string `json:"id"`
		OrderID     string `json:"order_id"`
		Status      string `json:"status"`
		BuyerEmail  string `json:"buyer_email_address"`
		AmountMoney struct {
			Amount int64 `json:"amount"`
		} `json:"amount_money"`
		TotalMoney struct {
			Amount int64 `json:"amount"`
		} `json:"total_money"`
		Note string `json:"note"`
	} `json:"payment"`
}

type refundObject struct {
	Refund struct {
		ID          string `json:"id"`
		OrderID     string `json:"order_id"`
		Status      string `json:"status"`
		Reason      string `json:"reason"`
		AmountMoney struct {
			Amount int64 `json:"amount"`
		} `json:"amount_money"`
	} `json:"refund"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.ParsedEvent, error) {
	var event squareEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.EventID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "payment.updated":
		return a.parsePaymentUpdated(event)
	case "refund.updated":
		return a.parseRefundUpdated(event)
	case "order.fulfillment.updated":
		return a.parseFulfillmentUpdated(event)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

type fulfillmentObject struct {
	OrderFulfillmentUpdated struct {
		OrderID           string `json:"order_id"`
		FulfillmentUpdate []struct {
			FulfillmentUID string `json:"fulfillment_uid"`
			OldState       string `json:"old_state"`
			NewState       string `json:"new_state"`
		} `json:"fulfillment_update"`
	} `json:"order_fulfillment_updated"`
}

func (a *Adapter) parsePaymentUpdated(event squareEvent) (*paymentdomain.ParsedEvent, error) {
	var object paymentObject
	if err := json.Unmarshal(event.Data.Object, &object); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	payment := object.Payment
	if strings.TrimSpace(payment.OrderID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}
	// Only a completed payment materializes an order.
	if !strings.EqualFold(payment.Status, "COMPLETED") {
		return nil, paymentdomain.ErrEventIgnored
	}

	total := payment.TotalMoney.Amount
	if total == 0 {
		total = payment.AmountMoney.Amount
	}

	return &paymentdomain.ParsedEvent{
		ProviderEventID: event.EventID,
		EventType:       event.Type,
		Checkout: &orderdomain.CheckoutEvent{
			Provider:             provider,
			SessionID:            payment.OrderID,
			Email:                strings.ToLower(strings.TrimSpace(payment.BuyerEmail)),
			TotalCents:           total,
			ProductSubtotalCents: total,
		},
	}, nil
}

// parseFulfillmentUpdated maps Square fulfillment states onto the order's
// shipping status: COMPLETED means the shipment left, anything earlier is
// internal pick/pack churn and is ignored.
func (a *Adapter) parseFulfillmentUpdated(event squareEvent) (*paymentdomain.ParsedEvent, error) {
	var object fulfillmentObject
	if err := json.Unmarshal(event.Data.Object, &object); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	updated := object.OrderFulfillmentUpdated
	if strings.TrimSpace(updated.OrderID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	shipped := false
	for _, update := range updated.FulfillmentUpdate {
		if strings.EqualFold(update.NewState, "COMPLETED") {
			shipped = true
			break
		}
	}
	if !shipped {
		return nil, paymentdomain.ErrEventIgnored
	}

	return &paymentdomain.ParsedEvent{
		ProviderEventID: event.EventID,
		EventType:       event.Type,
		Shipping: &orderdomain.ShippingEvent{
			Provider:       provider,
			OrderID:        updated.OrderID,
			ShippingStatus: orderdomain.ShippingStatusShipped,
		},
	}, nil
}

func (a *Adapter) parseRefundUpdated(event squareEvent) (*paymentdomain.ParsedEvent, error) {
	var object refundObject
	if err := json.Unmarshal(event.Data.Object, &object); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	refund := object.Refund
	if strings.TrimSpace(refund.ID) == "" || strings.TrimSpace(refund.OrderID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}
	if !strings.EqualFold(refund.Status, "COMPLETED") {
		return nil, paymentdomain.ErrEventIgnored
	}

	return &paymentdomain.ParsedEvent{
		ProviderEventID: event.EventID,
		EventType:       event.Type,
		Refund: &orderdomain.RefundEvent{
			Provider:         provider,
			ProviderRefundID: refund.ID,
			OrderID:          refund.OrderID,
			AmountCents:      refund.AmountMoney.Amount,
			Reason:           refund.Reason,
		},
	}, nil
}
