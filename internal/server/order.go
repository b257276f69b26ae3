package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	refunddomain "github.com/emberhollow/storefront/internal/refund/domain"
)

func (s *Server) AdminListOrders(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Email  string `form:"email"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orders, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListOrdersRequest{
		Status: strings.TrimSpace(query.Status),
		Email:  strings.TrimSpace(query.Email),
		Limit:  parseLimit(c, 100),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (s *Server) AdminGetOrder(c *gin.Context) {
	order, err := s.orderSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

type updateShippingRequest struct {
	ShippingStatus string `json:"shipping_status"`
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
}

func (s *Server) AdminUpdateShipping(c *gin.Context) {
	var req updateShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.orderSvc.UpdateShipping(c.Request.Context(), orderdomain.UpdateShippingRequest{
		OrderID:        strings.TrimSpace(c.Param("id")),
		ShippingStatus: strings.TrimSpace(req.ShippingStatus),
		Carrier:        strings.TrimSpace(req.Carrier),
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AdminCancelOrder(c *gin.Context) {
	if err := s.orderSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AdminListOrderAlerts(c *gin.Context) {
	alerts, err := s.orderSvc.ListAlerts(c.Request.Context(), parseLimit(c, 100))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// ---- refunds ----

func (s *Server) AdminListRefunds(c *gin.Context) {
	refunds, err := s.refundSvc.List(c.Request.Context(), parseLimit(c, 100))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": refunds})
}

func (s *Server) AdminListOrderRefunds(c *gin.Context) {
	refunds, err := s.refundSvc.ListByOrder(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": refunds})
}

type createRefundRequest struct {
	Items []struct {
		Slug     string `json:"slug"`
		Quantity int64  `json:"quantity"`
	} `json:"items"`
	Reason         string `json:"reason"`
	Restock        bool   `json:"restock"`
	ClawbackPoints bool   `json:"clawback_points"`
}

func (s *Server) AdminCreateRefund(c *gin.Context) {
	var req createRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	createReq := refunddomain.CreateRequest{
		OrderID:        strings.TrimSpace(c.Param("id")),
		Reason:         strings.TrimSpace(req.Reason),
		Restock:        req.Restock,
		ClawbackPoints: req.ClawbackPoints,
	}
	for _, item := range req.Items {
		createReq.Items = append(createReq.Items, refunddomain.CreateItemRequest{
			Slug:     strings.TrimSpace(item.Slug),
			Quantity: item.Quantity,
		})
	}

	refund, err := s.refundSvc.Create(c.Request.Context(), createReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": refund})
}
