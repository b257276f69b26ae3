package catalog

import (
	"github.com/emberhollow/storefront/internal/catalog/repository"
	"github.com/emberhollow/storefront/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
