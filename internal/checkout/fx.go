package checkout

import (
	"github.com/emberhollow/storefront/internal/checkout/service"
	"github.com/emberhollow/storefront/internal/checkout/squareapi"
	"github.com/emberhollow/storefront/internal/checkout/stripeapi"
	"github.com/emberhollow/storefront/internal/config"
	"go.uber.org/fx"
)

func newStripeClient(cfg config.Config) *stripeapi.Client {
	return stripeapi.New(cfg.Stripe)
}

func newSquareClient(cfg config.Config) *squareapi.Client {
	return squareapi.New(cfg.Square, cfg.BaseURL+"/checkout/complete")
}

var Module = fx.Module("checkout",
	fx.Provide(newStripeClient),
	fx.Provide(newSquareClient),
	fx.Provide(service.New),
)
