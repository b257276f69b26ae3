package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	obslogger "github.com/emberhollow/storefront/internal/observability/logger"
	"github.com/emberhollow/storefront/internal/token"
	userdomain "github.com/emberhollow/storefront/internal/user/domain"
)

const (
	verifyTokenTTL = 48 * time.Hour
	resetTokenTTL  = 2 * time.Hour
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	usr, err := s.userSvc.Register(c.Request.Context(), userdomain.RegisterRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sendVerificationEmail(c, usr)

	sess, err := s.sessionStore.Create(c.Request.Context(), usr.ID, usr.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sessions.Set(c, sess.Token, sess.ExpiresAt)

	c.JSON(http.StatusOK, gin.H{"data": usr})
}

func (s *Server) sendVerificationEmail(c *gin.Context, usr userdomain.User) {
	ctx := c.Request.Context()
	value, err := s.tokens.Issue(ctx, token.KindEmailVerify, token.Claims{UserID: usr.ID}, verifyTokenTTL)
	if err != nil {
		obslogger.FromContext(ctx).Warn("issue verify token", zap.Error(err))
		return
	}
	if err := s.mailer.SendTemplate(ctx, []string{usr.Email}, "verify_email", map[string]any{
		"Name":      usr.Name,
		"VerifyURL": s.cfg.BaseURL + "/verify?token=" + value,
	}); err != nil {
		obslogger.FromContext(ctx).Warn("send verify email", zap.Error(err))
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	usr, err := s.userSvc.Authenticate(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sess, err := s.sessionStore.Create(c.Request.Context(), usr.ID, usr.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sessions.Set(c, sess.Token, sess.ExpiresAt)

	c.JSON(http.StatusOK, gin.H{"data": usr})
}

func (s *Server) Logout(c *gin.Context) {
	if tok, ok := s.sessions.ReadToken(c); ok {
		_ = s.sessionStore.Destroy(c.Request.Context(), tok)
	}
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Me(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	usr, err := s.userSvc.GetByID(c.Request.Context(), uid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": usr})
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

func (s *Server) UpdateMe(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	usr, err := s.userSvc.UpdateProfile(c.Request.Context(), uid, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": usr})
}

type forgotRequest struct {
	Email string `json:"email"`
}

// Forgot always acks so the endpoint does not reveal which emails exist.
func (s *Server) Forgot(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	usr, err := s.userSvc.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err == nil {
		value, issueErr := s.tokens.Issue(ctx, token.KindPasswordReset, token.Claims{UserID: usr.ID}, resetTokenTTL)
		if issueErr == nil {
			if sendErr := s.mailer.SendTemplate(ctx, []string{usr.Email}, "password_reset", map[string]any{
				"Name":     usr.Name,
				"ResetURL": s.cfg.BaseURL + "/reset?token=" + value,
			}); sendErr != nil {
				obslogger.FromContext(ctx).Warn("send reset email", zap.Error(sendErr))
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) ResetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	claims, err := s.tokens.Consume(ctx, token.KindPasswordReset, strings.TrimSpace(req.Token))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.userSvc.ResetPassword(ctx, claims.UserID, req.Password); err != nil {
		AbortWithError(c, err)
		return
	}

	// Old sessions die with the old password.
	_ = s.sessionStore.DestroyAllForUser(ctx, claims.UserID)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type verifyRequest struct {
	Token string `json:"token"`
}

func (s *Server) VerifyEmail(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	claims, err := s.tokens.Consume(ctx, token.KindEmailVerify, strings.TrimSpace(req.Token))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.userSvc.MarkEmailVerified(ctx, claims.UserID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) ChangePassword(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.userSvc.ChangePassword(c.Request.Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
