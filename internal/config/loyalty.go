package config

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LoyaltyConfig holds the tunable business numbers that operators adjust
// without a redeploy: points accrual, webhook replay retention, public
// endpoint rate limits.
type LoyaltyConfig struct {
	PointsEarnDivisorCents int     `mapstructure:"pointsEarnDivisorCents"`
	WebhookRetentionDays   int     `mapstructure:"webhookRetentionDays"`
	CheckoutRate           float64 `mapstructure:"checkoutRate"`
	CheckoutBurst          int     `mapstructure:"checkoutBurst"`
	PromotionRate          float64 `mapstructure:"promotionRate"`
	PromotionBurst         int     `mapstructure:"promotionBurst"`
}

func DefaultLoyaltyConfig() LoyaltyConfig {
	return LoyaltyConfig{
		PointsEarnDivisorCents: 100,
		WebhookRetentionDays:   7,
		CheckoutRate:           1,
		CheckoutBurst:          5,
		PromotionRate:          2,
		PromotionBurst:         10,
	}
}

type LoyaltyConfigHolder struct {
	current atomic.Value // holds LoyaltyConfig
}

func NewLoyaltyConfigHolder() (*LoyaltyConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("loyalty")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/storefront")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLoyaltyConfig()
	v.SetDefault("loyalty.pointsEarnDivisorCents", defaults.PointsEarnDivisorCents)
	v.SetDefault("loyalty.webhookRetentionDays", defaults.WebhookRetentionDays)
	v.SetDefault("loyalty.checkoutRate", defaults.CheckoutRate)
	v.SetDefault("loyalty.checkoutBurst", defaults.CheckoutBurst)
	v.SetDefault("loyalty.promotionRate", defaults.PromotionRate)
	v.SetDefault("loyalty.promotionBurst", defaults.PromotionBurst)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &LoyaltyConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(in fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("loyalty config reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *LoyaltyConfigHolder) reload(v *viper.Viper) error {
	var cfg LoyaltyConfig
	if err := v.UnmarshalKey("loyalty", &cfg); err != nil {
		return err
	}
	cfg = sanitizeLoyalty(cfg)
	h.current.Store(cfg)
	return nil
}

// NewStaticLoyaltyHolder returns a holder pinned to cfg, with no file watch.
func NewStaticLoyaltyHolder(cfg LoyaltyConfig) *LoyaltyConfigHolder {
	holder := &LoyaltyConfigHolder{}
	holder.current.Store(sanitizeLoyalty(cfg))
	return holder
}

func (h *LoyaltyConfigHolder) Current() LoyaltyConfig {
	if v, ok := h.current.Load().(LoyaltyConfig); ok {
		return v
	}
	return DefaultLoyaltyConfig()
}

func sanitizeLoyalty(cfg LoyaltyConfig) LoyaltyConfig {
	defaults := DefaultLoyaltyConfig()
	if cfg.PointsEarnDivisorCents <= 0 {
		cfg.PointsEarnDivisorCents = defaults.PointsEarnDivisorCents
	}
	if cfg.WebhookRetentionDays <= 0 {
		cfg.WebhookRetentionDays = defaults.WebhookRetentionDays
	}
	if cfg.CheckoutRate <= 0 {
		cfg.CheckoutRate = defaults.CheckoutRate
	}
	if cfg.CheckoutBurst <= 0 {
		cfg.CheckoutBurst = defaults.CheckoutBurst
	}
	if cfg.PromotionRate <= 0 {
		cfg.PromotionRate = defaults.PromotionRate
	}
	if cfg.PromotionBurst <= 0 {
		cfg.PromotionBurst = defaults.PromotionBurst
	}
	return cfg
}
