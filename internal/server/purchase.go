package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	purchasedomain "github.com/emberhollow/storefront/internal/purchase/domain"
)

func (s *Server) AdminListPurchases(c *gin.Context) {
	purchases, err := s.purchaseSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": purchases})
}

func (s *Server) AdminCreatePurchase(c *gin.Context) {
	var req purchasedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	purchase, err := s.purchaseSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": purchase})
}

func (s *Server) AdminGetPurchase(c *gin.Context) {
	purchase, err := s.purchaseSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": purchase})
}

func (s *Server) AdminDeletePurchase(c *gin.Context) {
	if err := s.purchaseSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
