package analytics

import (
	"github.com/emberhollow/storefront/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics",
	fx.Provide(service.New),
)
