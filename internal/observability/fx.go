package observability

import (
	"github.com/emberhollow/storefront/internal/observability/logger"
	"github.com/emberhollow/storefront/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		logger.FromAppConfig,
		logger.New,
		func() *prometheus.Registry { return prometheus.NewRegistry() },
		func(reg *prometheus.Registry) prometheus.Registerer { return reg },
		metrics.New,
	),
)
