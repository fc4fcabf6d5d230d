package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
)

// ListSubscribers returns a cursor-paginated page of stored subscribers.
func (s *Server) ListSubscribers(c *gin.Context) {
	req := subscriberdomain.ListRequest{
		PageToken: c.Query("page_token"),
		Email:     c.Query("email"),
		Provider:  c.Query("provider"),
	}

	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || size < 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.PageSize = int32(size)
	}

	resp, err := s.subscriberSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
