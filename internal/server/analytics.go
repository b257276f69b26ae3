package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// AdminRevenueByDay reports completed-order revenue per day over [from, to).
// Defaults to the trailing 30 days.
func (s *Server) AdminRevenueByDay(c *gin.Context) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now.AddDate(0, 0, 1)

	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		from = parsed
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		to = parsed
	}

	points, err := s.analyticsSvc.RevenueByDay(c.Request.Context(), from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": points})
}

func (s *Server) AdminTopProducts(c *gin.Context) {
	products, err := s.analyticsSvc.TopProducts(c.Request.Context(), parseLimit(c, 10))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (s *Server) AdminPointsLiability(c *gin.Context) {
	liability, err := s.analyticsSvc.PointsLiability(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": liability})
}

func (s *Server) AdminPromotionPerformance(c *gin.Context) {
	performance, err := s.analyticsSvc.PromotionPerformance(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": performance})
}
