package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/emberhollow/storefront/internal/analytics"
	analyticsdomain "github.com/emberhollow/storefront/internal/analytics/domain"
	"github.com/emberhollow/storefront/internal/auth/session"
	"github.com/emberhollow/storefront/internal/catalog"
	catalogdomain "github.com/emberhollow/storefront/internal/catalog/domain"
	"github.com/emberhollow/storefront/internal/checkout"
	checkoutdomain "github.com/emberhollow/storefront/internal/checkout/domain"
	"github.com/emberhollow/storefront/internal/config"
	"github.com/emberhollow/storefront/internal/inventory"
	"github.com/emberhollow/storefront/internal/migration"
	"github.com/emberhollow/storefront/internal/observability"
	obsmiddleware "github.com/emberhollow/storefront/internal/observability/logger"
	obsmetrics "github.com/emberhollow/storefront/internal/observability/metrics"
	"github.com/emberhollow/storefront/internal/order"
	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	"github.com/emberhollow/storefront/internal/payment"
	paymentdomain "github.com/emberhollow/storefront/internal/payment/domain"
	"github.com/emberhollow/storefront/internal/points"
	pointsdomain "github.com/emberhollow/storefront/internal/points/domain"
	"github.com/emberhollow/storefront/internal/promotion"
	promotiondomain "github.com/emberhollow/storefront/internal/promotion/domain"
	"github.com/emberhollow/storefront/internal/providers/email"
	"github.com/emberhollow/storefront/internal/purchase"
	purchasedomain "github.com/emberhollow/storefront/internal/purchase/domain"
	"github.com/emberhollow/storefront/internal/ratelimit"
	"github.com/emberhollow/storefront/internal/refund"
	refunddomain "github.com/emberhollow/storefront/internal/refund/domain"
	"github.com/emberhollow/storefront/internal/review"
	reviewdomain "github.com/emberhollow/storefront/internal/review/domain"
	"github.com/emberhollow/storefront/internal/scheduler"
	"github.com/emberhollow/storefront/internal/token"
	"github.com/emberhollow/storefront/internal/user"
	userdomain "github.com/emberhollow/storefront/internal/user/domain"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	fx.Provide(registerGin),
	migration.Module,
	session.Module,
	token.Module,
	email.Module,
	user.Module,
	catalog.Module,
	inventory.Module,
	points.Module,
	promotion.Module,
	order.Module,
	refund.Module,
	payment.Module,
	checkout.Module,
	review.Module,
	purchase.Module,
	analytics.Module,
	ratelimit.Module,
	scheduler.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           cfg.Environment != "production",
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

func registerGin(cfg config.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(cfg, metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	sessions     *session.Manager
	sessionStore *session.Store
	tokens       token.Store
	mailer       email.Provider

	userSvc      userdomain.Service
	catalogSvc   catalogdomain.Service
	checkoutSvc  checkoutdomain.Service
	orderSvc     orderdomain.Service
	refundSvc    refunddomain.Service
	paymentSvc   paymentdomain.Service
	pointsSvc    pointsdomain.Service
	promotionSvc promotiondomain.Service
	reviewSvc    reviewdomain.Service
	purchaseSvc  purchasedomain.Service
	analyticsSvc analyticsdomain.Service

	limiter *ratelimit.PublicLimiter
	metrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	Sessions     *session.Manager
	SessionStore *session.Store
	Tokens       token.Store
	Mailer       email.Provider

	UserSvc      userdomain.Service
	CatalogSvc   catalogdomain.Service
	CheckoutSvc  checkoutdomain.Service
	OrderSvc     orderdomain.Service
	RefundSvc    refunddomain.Service
	PaymentSvc   paymentdomain.Service
	PointsSvc    pointsdomain.Service
	PromotionSvc promotiondomain.Service
	ReviewSvc    reviewdomain.Service
	PurchaseSvc  purchasedomain.Service
	AnalyticsSvc analyticsdomain.Service

	Limiter *ratelimit.PublicLimiter `optional:"true"`
	Metrics *obsmetrics.Metrics      `optional:"true"`
	PromReg *prometheus.Registry     `optional:"true"`
	Sched   *scheduler.Scheduler     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		sessions:     p.Sessions,
		sessionStore: p.SessionStore,
		tokens:       p.Tokens,
		mailer:       p.Mailer,
		userSvc:      p.UserSvc,
		catalogSvc:   p.CatalogSvc,
		checkoutSvc:  p.CheckoutSvc,
		orderSvc:     p.OrderSvc,
		refundSvc:    p.RefundSvc,
		paymentSvc:   p.PaymentSvc,
		pointsSvc:    p.PointsSvc,
		promotionSvc: p.PromotionSvc,
		reviewSvc:    p.ReviewSvc,
		purchaseSvc:  p.PurchaseSvc,
		analyticsSvc: p.AnalyticsSvc,
		limiter:      p.Limiter,
		metrics:      p.Metrics,
	}

	if p.PromReg != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.PromReg, promhttp.HandlerOpts{})))
	}

	s.registerAuthRoutes()
	s.registerAPIRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.POST("/forgot", s.Forgot)
	auth.POST("/reset", s.ResetPassword)
	auth.POST("/verify", s.VerifyEmail)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.PATCH("/me", s.AuthRequired(), s.UpdateMe)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Catalog --------
	api.GET("/products", s.ListProducts)
	api.GET("/products/:slug", s.GetProduct)
	api.GET("/products/:slug/reviews", s.ListProductReviews)
	api.POST("/products/:slug/reviews", s.OptionalAuth(), s.CreateProductReview)

	api.GET("/scents", s.ListScents)
	api.GET("/wick-types", s.ListWickTypes)

	// -------- Checkout --------
	api.POST("/checkout", s.OptionalAuth(), s.CheckoutRateLimit(), s.CreateCheckoutSession)
	api.POST("/promotions/validate", s.OptionalAuth(), s.PromotionRateLimit(), s.ValidatePromotion)

	// -------- Invoices --------
	api.GET("/invoices/:token", s.GetInvoice)

	// -------- Account --------
	me := api.Group("/me", s.AuthRequired())
	{
		me.GET("/orders", s.ListMyOrders)
		me.GET("/points", s.GetMyPoints)
	}

	// -------- Payment Webhooks --------
	api.POST("/stripe/webhook", s.HandlePaymentWebhook("stripe"))
	api.POST("/square/webhook", s.HandlePaymentWebhook("square"))
	api.POST("/tiktok/webhook", s.HandlePaymentWebhook("tiktok"))
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin")

	admin.Use(s.AuthRequired())
	admin.Use(s.AdminRequired())

	// -------- Catalog --------
	admin.GET("/products", s.AdminListProducts)
	admin.POST("/products", s.AdminCreateProduct)
	admin.PATCH("/products/:id", s.AdminUpdateProduct)
	admin.POST("/products/:id/archive", s.AdminArchiveProduct)
	admin.POST("/products/:id/variants", s.AdminCreateVariant)
	admin.DELETE("/variants/:id", s.AdminDeleteVariant)

	admin.GET("/scents", s.ListScents)
	admin.POST("/scents", s.AdminCreateScent)
	admin.DELETE("/scents/:id", s.AdminDeleteScent)
	admin.GET("/wick-types", s.ListWickTypes)
	admin.POST("/wick-types", s.AdminCreateWickType)
	admin.DELETE("/wick-types/:id", s.AdminDeleteWickType)
	admin.GET("/containers", s.AdminListContainers)
	admin.POST("/containers", s.AdminCreateContainer)
	admin.DELETE("/containers/:id", s.AdminDeleteContainer)

	// -------- Promotions --------
	admin.GET("/promotions", s.AdminListPromotions)
	admin.POST("/promotions", s.AdminCreatePromotion)
	admin.GET("/promotions/:id", s.AdminGetPromotion)
	admin.PATCH("/promotions/:id", s.AdminUpdatePromotion)
	admin.DELETE("/promotions/:id", s.AdminDeletePromotion)

	// -------- Reviews --------
	admin.GET("/reviews/pending", s.AdminListPendingReviews)
	admin.POST("/reviews/:id/approve", s.AdminApproveReview)
	admin.DELETE("/reviews/:id", s.AdminDeleteReview)

	// -------- Orders --------
	admin.GET("/orders", s.AdminListOrders)
	admin.GET("/orders/alerts", s.AdminListOrderAlerts)
	admin.GET("/orders/:id", s.AdminGetOrder)
	admin.PATCH("/orders/:id/shipping", s.AdminUpdateShipping)
	admin.POST("/orders/:id/cancel", s.AdminCancelOrder)

	// -------- Refunds --------
	admin.GET("/refunds", s.AdminListRefunds)
	admin.GET("/orders/:id/refunds", s.AdminListOrderRefunds)
	admin.POST("/orders/:id/refunds", s.AdminCreateRefund)

	// -------- Purchases --------
	admin.GET("/purchases", s.AdminListPurchases)
	admin.POST("/purchases", s.AdminCreatePurchase)
	admin.GET("/purchases/:id", s.AdminGetPurchase)
	admin.DELETE("/purchases/:id", s.AdminDeletePurchase)

	// -------- Points --------
	admin.GET("/users", s.AdminListUsers)
	admin.GET("/users/:id/points", s.AdminGetUserPoints)
	admin.POST("/users/:id/points", s.AdminAdjustPoints)
	admin.GET("/points/reconcile", s.AdminReconcilePoints)

	// -------- Analytics --------
	admin.GET("/analytics/revenue", s.AdminRevenueByDay)
	admin.GET("/analytics/top-products", s.AdminTopProducts)
	admin.GET("/analytics/points-liability", s.AdminPointsLiability)
	admin.GET("/analytics/promotions", s.AdminPromotionPerformance)
}
