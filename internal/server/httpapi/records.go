package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/server/models"
	"github.com/gin-gonic/gin"
)

// Empty lists serialize as [] rather than null so clients can range
// without a nil check.

func (s *Server) handleCreateProgram(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	program, err := s.records.CreateProgram(c.Request.Context(), s.userID(c), req.Name)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

func (s *Server) handleListPrograms(c *gin.Context) {
	programs, err := s.records.ListPrograms(c.Request.Context(), s.userID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if programs == nil {
		programs = []*models.Program{}
	}
	c.JSON(http.StatusOK, programs)
}

func (s *Server) handleDeleteProgram(c *gin.Context) {
	if err := s.records.DeleteProgram(c.Request.Context(), s.userID(c), c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCreateCourse(c *gin.Context) {
	var req struct {
		ProgramID string `json:"program_id"`
		Name      string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	course, err := s.records.CreateCourse(c.Request.Context(), s.userID(c), req.ProgramID, req.Name)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (s *Server) handleListCourses(c *gin.Context) {
	programID := c.Query("program_id")
	if programID == "" {
		s.abortWithError(c, fmt.Errorf("%w: program_id required", common.ErrValidation))
		return
	}

	courses, err := s.records.ListCourses(c.Request.Context(), s.userID(c), programID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	c.JSON(http.StatusOK, courses)
}

func (s *Server) handleDeleteCourse(c *gin.Context) {
	if err := s.records.DeleteCourse(c.Request.Context(), s.userID(c), c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req struct {
		CourseID string `json:"course_id"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	session, err := s.records.CreateSession(c.Request.Context(), s.userID(c), req.CourseID, req.Name)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleListSessions(c *gin.Context) {
	courseID := c.Query("course_id")
	if courseID == "" {
		s.abortWithError(c, fmt.Errorf("%w: course_id required", common.ErrValidation))
		return
	}

	sessions, err := s.records.ListSessions(c.Request.Context(), s.userID(c), courseID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if sessions == nil {
		sessions = []*models.NoteSession{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Server) handleSaveNotes(c *gin.Context) {
	var req struct {
		Notes     string `json:"notes"`
		UpdatedAt string `json:"updated_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, req.UpdatedAt)
	if err != nil {
		s.abortWithError(c, fmt.Errorf("%w: updated_at must be RFC3339", common.ErrValidation))
		return
	}

	if err := s.records.SaveNotes(c.Request.Context(), s.userID(c), c.Param("id"), req.Notes, updatedAt); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.records.DeleteSession(c.Request.Context(), s.userID(c), c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCreateTerm(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
		Term      string `json:"term"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	term, err := s.records.CreateTerm(c.Request.Context(), s.userID(c), req.SessionID, req.Term)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, term)
}

func (s *Server) handleListTerms(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		s.abortWithError(c, fmt.Errorf("%w: session_id required", common.ErrValidation))
		return
	}

	terms, err := s.records.ListTerms(c.Request.Context(), s.userID(c), sessionID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if terms == nil {
		terms = []*models.Term{}
	}
	c.JSON(http.StatusOK, terms)
}

func (s *Server) handleUpdateTerm(c *gin.Context) {
	var req struct {
		Definition string `json:"definition"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	term, err := s.records.UpdateTermDefinition(c.Request.Context(), s.userID(c), c.Param("id"), req.Definition)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, term)
}

func (s *Server) handleDeleteTerm(c *gin.Context) {
	if err := s.records.DeleteTerm(c.Request.Context(), s.userID(c), c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
