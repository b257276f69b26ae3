package order

import (
	"github.com/emberhollow/storefront/internal/order/repository"
	"github.com/emberhollow/storefront/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
