package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	reviewdomain "github.com/emberhollow/storefront/internal/review/domain"
)

func (s *Server) ListProductReviews(c *gin.Context) {
	reviews, err := s.reviewSvc.ListApproved(c.Request.Context(), strings.TrimSpace(c.Param("slug")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reviews})
}

func (s *Server) CreateProductReview(c *gin.Context) {
	var req reviewdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.ProductSlug = strings.TrimSpace(c.Param("slug"))
	req.UserID = currentUserIDRef(c)
	if req.UserID != nil {
		usr, err := s.userSvc.GetByID(c.Request.Context(), *req.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Email = usr.Email
	}

	review, err := s.reviewSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": review})
}

// ---- admin moderation ----

func (s *Server) AdminListPendingReviews(c *gin.Context) {
	reviews, err := s.reviewSvc.ListPending(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reviews})
}

func (s *Server) AdminApproveReview(c *gin.Context) {
	if err := s.reviewSvc.Approve(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AdminDeleteReview(c *gin.Context) {
	if err := s.reviewSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
