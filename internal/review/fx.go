package review

import (
	"github.com/emberhollow/storefront/internal/review/repository"
	"github.com/emberhollow/storefront/internal/review/service"
	"go.uber.org/fx"
)

var Module = fx.Module("review",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
