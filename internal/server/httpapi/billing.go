package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/gin-gonic/gin"
)

type subscriptionResponse struct {
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleGetSubscription answers 404 when the user has no subscription
// record; the client treats that as "no subscription", not an error.
func (s *Server) handleGetSubscription(c *gin.Context) {
	sub, err := s.billing.Subscription(c.Request.Context(), s.userID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscriptionResponse{
		UserID:    sub.UserID,
		Status:    sub.Status,
		Plan:      sub.Plan,
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
	})
}

func (s *Server) handleCreateCheckout(c *gin.Context) {
	var req struct {
		Plan  string `json:"plan"`
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	url, err := s.billing.CreateCheckout(c.Request.Context(), s.userID(c), req.Plan, req.Email)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) handleVerifyPayment(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	verified, err := s.billing.Verify(c.Request.Context(), s.userID(c), req.SessionID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": verified})
}
