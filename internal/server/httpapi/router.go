// Package httpapi exposes the server's JSON API over gin. Route paths and
// payload shapes are the contract the CLI's HTTP client is written
// against.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/logging"
	"github.com/clarifio/clarifio/internal/server/billing"
	"github.com/clarifio/clarifio/internal/server/config"
	"github.com/clarifio/clarifio/internal/server/definitions"
	"github.com/clarifio/clarifio/internal/server/identity"
	"github.com/clarifio/clarifio/internal/server/records"
	"github.com/gin-gonic/gin"
)

type Server struct {
	identity    *identity.Service
	records     *records.Service
	definitions *definitions.Service
	billing     *billing.Service
	jwtSecret   []byte
	log         logging.Logger
}

func NewServer(ids *identity.Service, recs *records.Service, defs *definitions.Service, bill *billing.Service, cfg *config.Config, log logging.Logger) *Server {
	return &Server{
		identity:    ids,
		records:     recs,
		definitions: defs,
		billing:     bill,
		jwtSecret:   []byte(cfg.SecretKey),
		log:         log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	v1 := r.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/anonymous", s.handleAnonymous)
	auth.POST("/signup", s.handleSignUp)
	auth.GET("/confirm", s.handleConfirm)
	auth.POST("/signin", s.handleSignIn)
	auth.POST("/refresh", s.handleRefresh)

	authed := v1.Group("")
	authed.Use(s.requireAuth())

	authed.POST("/auth/link", s.handleLink)
	authed.POST("/auth/signout", s.handleSignOut)
	authed.GET("/auth/session", s.handleSession)

	authed.GET("/programs", s.handleListPrograms)
	authed.POST("/programs", s.handleCreateProgram)
	authed.DELETE("/programs/:id", s.handleDeleteProgram)

	authed.GET("/courses", s.handleListCourses)
	authed.POST("/courses", s.handleCreateCourse)
	authed.DELETE("/courses/:id", s.handleDeleteCourse)

	authed.GET("/sessions", s.handleListSessions)
	authed.POST("/sessions", s.handleCreateSession)
	authed.PATCH("/sessions/:id", s.handleSaveNotes)
	authed.DELETE("/sessions/:id", s.handleDeleteSession)

	authed.GET("/terms", s.handleListTerms)
	authed.POST("/terms", s.handleCreateTerm)
	authed.PATCH("/terms/:id", s.handleUpdateTerm)
	authed.DELETE("/terms/:id", s.handleDeleteTerm)

	authed.GET("/subscription", s.handleGetSubscription)
	authed.POST("/billing/checkout", s.handleCreateCheckout)
	authed.POST("/billing/verify", s.handleVerifyPayment)

	authed.POST("/clarify", s.handleClarify)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

// abortWithError maps sentinel errors onto HTTP statuses and the JSON
// error envelope the client decodes.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrAuth):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrService):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.log.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
