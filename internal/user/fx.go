package user

import (
	"github.com/emberhollow/storefront/internal/user/repository"
	"github.com/emberhollow/storefront/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
