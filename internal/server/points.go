package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func parseSnowflakeParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, invalidRequestError()
	}
	return id, nil
}

func (s *Server) AdminListUsers(c *gin.Context) {
	users, err := s.userSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (s *Server) AdminGetUserPoints(c *gin.Context) {
	uid, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	balance, err := s.pointsSvc.Balance(ctx, uid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ledger, err := s.pointsSvc.Ledger(ctx, uid, parseLimit(c, 100))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"balance": balance,
		"ledger":  ledger,
	}})
}

type adjustPointsRequest struct {
	Delta int64  `json:"delta"`
	Note  string `json:"note"`
}

func (s *Server) AdminAdjustPoints(c *gin.Context) {
	uid, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req adjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.pointsSvc.Adjust(c.Request.Context(), uid, req.Delta, strings.TrimSpace(req.Note)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AdminReconcilePoints compares cached balances to the ledger and reports
// users whose totals drifted apart.
func (s *Server) AdminReconcilePoints(c *gin.Context) {
	drifts, err := s.pointsSvc.Reconcile(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": drifts})
}
