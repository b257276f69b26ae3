package promotion

import (
	"github.com/emberhollow/storefront/internal/promotion/repository"
	"github.com/emberhollow/storefront/internal/promotion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("promotion",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
