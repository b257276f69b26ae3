package payment

import (
	"github.com/emberhollow/storefront/internal/config"
	"github.com/emberhollow/storefront/internal/payment/adapters"
	"github.com/emberhollow/storefront/internal/payment/adapters/square"
	"github.com/emberhollow/storefront/internal/payment/adapters/stripe"
	"github.com/emberhollow/storefront/internal/payment/adapters/tiktok"
	"github.com/emberhollow/storefront/internal/payment/repository"
	"github.com/emberhollow/storefront/internal/payment/webhook"
	"go.uber.org/fx"
)

func newRegistry(cfg config.Config) *adapters.Registry {
	return adapters.NewRegistry(
		stripe.New(cfg.Stripe.WebhookSecret),
		square.New(cfg.Square.SignatureKey, cfg.Square.WebhookURL),
		tiktok.New(cfg.TikTok.AppSecret),
	)
}

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
	fx.Provide(newRegistry),
	fx.Provide(webhook.NewService),
)
