package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	checkoutdomain "github.com/emberhollow/storefront/internal/checkout/domain"
	promotiondomain "github.com/emberhollow/storefront/internal/promotion/domain"
	"github.com/emberhollow/storefront/internal/token"
)

// CreateCheckoutSession accepts a JSON cart from fetch callers and a flat
// single-item form from plain buy buttons. Form posts get a 303 to the
// hosted checkout page instead of a JSON body.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req checkoutdomain.CreateSessionRequest
	formPost := c.ContentType() == gin.MIMEPOSTForm || c.ContentType() == gin.MIMEMultipartPOSTForm
	if formPost {
		parsed, err := bindCheckoutForm(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req = parsed
	} else if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.UserID = currentUserIDRef(c)
	if req.UserID != nil && strings.TrimSpace(req.Email) == "" {
		usr, err := s.userSvc.GetByID(c.Request.Context(), *req.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Email = usr.Email
	}

	sess, err := s.checkoutSvc.CreateSession(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if formPost {
		c.Redirect(http.StatusSeeOther, sess.URL)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sess})
}

func bindCheckoutForm(c *gin.Context) (checkoutdomain.CreateSessionRequest, error) {
	quantity := int64(1)
	if raw := strings.TrimSpace(c.PostForm("quantity")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return checkoutdomain.CreateSessionRequest{}, invalidRequestError()
		}
		quantity = parsed
	}
	points := int64(0)
	if raw := strings.TrimSpace(c.PostForm("points_to_redeem")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return checkoutdomain.CreateSessionRequest{}, invalidRequestError()
		}
		points = parsed
	}

	return checkoutdomain.CreateSessionRequest{
		Provider:       strings.TrimSpace(c.PostForm("provider")),
		Email:          strings.TrimSpace(c.PostForm("email")),
		PromotionCode:  strings.TrimSpace(c.PostForm("promotion_code")),
		PointsToRedeem: points,
		Items: []checkoutdomain.ItemRequest{{
			PriceRef: strings.TrimSpace(c.PostForm("price_ref")),
			Slug:     strings.TrimSpace(c.PostForm("slug")),
			WickType: strings.TrimSpace(c.PostForm("wick_type")),
			Scent:    strings.TrimSpace(c.PostForm("scent")),
			Quantity: quantity,
		}},
	}, nil
}

type validatePromotionRequest struct {
	Code          string `json:"code"`
	Email         string `json:"email,omitempty"`
	SubtotalCents int64  `json:"subtotal_cents,omitempty"`
	Items         []struct {
		Slug      string `json:"slug"`
		Quantity  int64  `json:"quantity"`
		UnitCents int64  `json:"unit_cents"`
	} `json:"items,omitempty"`
}

// ValidatePromotion is a dry run. It answers whether the code would apply to
// the given cart without reserving a redemption.
func (s *Server) ValidatePromotion(c *gin.Context) {
	var req validatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	vctx := promotiondomain.VContext{
		UserID:        currentUserIDRef(c),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		SubtotalCents: req.SubtotalCents,
	}
	if vctx.UserID != nil {
		usr, err := s.userSvc.GetByID(ctx, *vctx.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		vctx.Email = strings.ToLower(usr.Email)
	}
	vctx.Guest = vctx.UserID == nil

	for _, item := range req.Items {
		vctx.Items = append(vctx.Items, promotiondomain.VItem{
			Slug:      strings.TrimSpace(item.Slug),
			Quantity:  item.Quantity,
			UnitCents: item.UnitCents,
		})
		if req.SubtotalCents == 0 {
			vctx.SubtotalCents += item.Quantity * item.UnitCents
		}
	}

	if vctx.Email != "" {
		count, spend, err := s.orderSvc.PriorOrderStats(ctx, vctx.Email)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		vctx.PriorOrderCount = count
		vctx.PriorSpendCents = spend
	}

	result, err := s.promotionSvc.Validate(ctx, strings.TrimSpace(req.Code), vctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetInvoice serves an order by its emailed access token. The token is peeked
// rather than consumed so the link keeps working until it expires.
func (s *Server) GetInvoice(c *gin.Context) {
	value := strings.TrimSpace(c.Param("token"))
	claims, err := s.tokens.Peek(c.Request.Context(), token.KindInvoiceAccess, value)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	refunds, err := s.refundSvc.ListByOrder(c.Request.Context(), order.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"order":   order,
		"refunds": refunds,
	}})
}

func (s *Server) ListMyOrders(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orders, err := s.orderSvc.ListByUser(c.Request.Context(), uid, parseLimit(c, 50))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (s *Server) GetMyPoints(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	balance, err := s.pointsSvc.Balance(ctx, uid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ledger, err := s.pointsSvc.Ledger(ctx, uid, parseLimit(c, 50))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"balance": balance,
		"ledger":  ledger,
	}})
}
