package purchase

import (
	"github.com/emberhollow/storefront/internal/purchase/repository"
	"github.com/emberhollow/storefront/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
