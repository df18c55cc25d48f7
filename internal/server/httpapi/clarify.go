package httpapi

import (
	"fmt"
	"net/http"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/gin-gonic/gin"
)

type clarifyRequest struct {
	Terms     []string `json:"terms"`
	Notes     string   `json:"notes"`
	SessionID string   `json:"sessionId"`
}

// handleClarify resolves one batch of terms and answers with a flat
// term-to-definition object. A partial answer is a success: the client
// keeps unanswered terms pending.
func (s *Server) handleClarify(c *gin.Context) {
	var req clarifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	defs, err := s.definitions.Define(c.Request.Context(), req.Terms, req.Notes)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, defs)
}
