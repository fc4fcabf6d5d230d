package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obsmetrics "github.com/coursegate/coursegate/internal/observability/metrics"
	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
)

type validateEmailRequest struct {
	Email string `json:"email"`
}

type validateEmailResponse struct {
	Email     string `json:"email"`
	IsStudent bool   `json:"is_student"`
	Status    string `json:"status"`
}

// ValidateEmail reports whether the email belongs to an entitled member.
func (s *Server) ValidateEmail(c *gin.Context) {
	var req validateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, subscriberdomain.ErrInvalidEmail)
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		AbortWithError(c, subscriberdomain.ErrInvalidEmail)
		return
	}

	isStudent, err := s.entitlementSvc.IsActiveMember(c.Request.Context(), email)
	if err != nil {
		s.metrics.IncEntitlementLookup(obsmetrics.EntitlementResultError)
		AbortWithError(c, err)
		return
	}

	result := obsmetrics.EntitlementResultMiss
	if isStudent {
		result = obsmetrics.EntitlementResultLocal
	}
	s.metrics.IncEntitlementLookup(result)

	c.JSON(http.StatusOK, validateEmailResponse{
		Email:     email,
		IsStudent: isStudent,
		Status:    "success",
	})
}
