package refund

import (
	"github.com/emberhollow/storefront/internal/refund/repository"
	"github.com/emberhollow/storefront/internal/refund/service"
	"go.uber.org/fx"
)

var Module = fx.Module("refund",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
