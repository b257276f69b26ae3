package domain

import "github.com/bwmarrin/snowflake"

// CheckoutLine is one purchased line as the payment provider reported it.
// PriceRef carries the provider's price/catalog reference when present; slug
// and variant attributes come from checkout metadata.
type CheckoutLine struct {
	PriceRef  string
	Slug      string
	Name      string
	WickType  string
	Scent     string
	Quantity  int64
	UnitCents int64
}

// CheckoutEvent is the provider-neutral shape every webhook adapter parses
// its completed-checkout payload into.
type CheckoutEvent struct {
	Provider             string
	SessionID            string
	Email                string
	UserID               *snowflake.ID
	Lines                []CheckoutLine
	TotalCents           int64
	ProductSubtotalCents int64
	ShippingCents        int64
	TaxCents             int64
	DiscountCents        int64
	PromotionID          *snowflake.ID
	PointsRedeemed       int64
}

// RefundEvent is the provider-neutral shape for refund notifications.
type RefundEvent struct {
	Provider         string
	ProviderRefundID string
	OrderID          string
	AmountCents      int64
	Reason           string
}

// ShippingEvent is the provider-neutral shape for fulfillment updates
// reported by a provider rather than entered by an operator.
type ShippingEvent struct {
	Provider       string
	OrderID        string
	ShippingStatus string
	Carrier        string
	TrackingNumber string
}
