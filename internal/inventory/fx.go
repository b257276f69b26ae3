package inventory

import (
	"github.com/emberhollow/storefront/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("inventory",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Syncer {
	if cfg.Square.AccessToken == "" || cfg.Square.LocationID == "" {
		return NoopSyncer{}
	}
	return NewSquareSyncer(cfg, log)
}
