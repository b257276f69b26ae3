package points

import (
	"github.com/emberhollow/storefront/internal/points/repository"
	"github.com/emberhollow/storefront/internal/points/service"
	"go.uber.org/fx"
)

var Module = fx.Module("points",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
