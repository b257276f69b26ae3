package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	promotiondomain "github.com/emberhollow/storefront/internal/promotion/domain"
)

func (s *Server) AdminListPromotions(c *gin.Context) {
	promos, err := s.promotionSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": promos})
}

type createPromotionRequest struct {
	Code             string   `json:"code"`
	Type             string   `json:"type"`
	Percent          int64    `json:"percent"`
	AmountCents      int64    `json:"amount_cents"`
	MaxRedemptions   int64    `json:"max_redemptions"`
	PerCustomerLimit int64    `json:"per_customer_limit"`
	MinOrderCents    int64    `json:"min_order_cents"`
	Targeting        string   `json:"targeting"`
	AllowList        []string `json:"allow_list"`
	MinOrderCount    int64    `json:"min_order_count"`
	MinSpendCents    int64    `json:"min_spend_cents"`
	ProductSlugs     []string `json:"product_slugs"`
	StartsAt         *string  `json:"starts_at"`
	ExpiresAt        *string  `json:"expires_at"`
}

func (s *Server) AdminCreatePromotion(c *gin.Context) {
	var req createPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	promo, err := s.promotionSvc.Create(c.Request.Context(), promotiondomain.CreatePromotionRequest{
		Code:             strings.TrimSpace(req.Code),
		Type:             strings.TrimSpace(req.Type),
		Percent:          req.Percent,
		AmountCents:      req.AmountCents,
		MaxRedemptions:   req.MaxRedemptions,
		PerCustomerLimit: req.PerCustomerLimit,
		MinOrderCents:    req.MinOrderCents,
		Targeting:        strings.TrimSpace(req.Targeting),
		AllowList:        req.AllowList,
		MinOrderCount:    req.MinOrderCount,
		MinSpendCents:    req.MinSpendCents,
		ProductSlugs:     req.ProductSlugs,
		StartsAt:         req.StartsAt,
		ExpiresAt:        req.ExpiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": promo})
}

func (s *Server) AdminGetPromotion(c *gin.Context) {
	promo, err := s.promotionSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": promo})
}

type updatePromotionRequest struct {
	Active         *bool   `json:"active"`
	MaxRedemptions *int64  `json:"max_redemptions"`
	MinOrderCents  *int64  `json:"min_order_cents"`
	ExpiresAt      *string `json:"expires_at"`
}

func (s *Server) AdminUpdatePromotion(c *gin.Context) {
	var req updatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	promo, err := s.promotionSvc.Update(c.Request.Context(), promotiondomain.UpdatePromotionRequest{
		ID:             strings.TrimSpace(c.Param("id")),
		Active:         req.Active,
		MaxRedemptions: req.MaxRedemptions,
		MinOrderCents:  req.MinOrderCents,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": promo})
}

func (s *Server) AdminDeletePromotion(c *gin.Context) {
	if err := s.promotionSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
