package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	obsmetrics "github.com/coursegate/coursegate/internal/observability/metrics"
	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
	webhookdomain "github.com/coursegate/coursegate/internal/webhook/domain"
	"go.uber.org/zap"
)

type webhookResponse struct {
	Status   string `json:"status"`
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// HandleHotmartWebhook ingests the structured purchase-approved shape.
func (s *Server) HandleHotmartWebhook(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, webhookdomain.ErrInvalidPayload)
		return
	}

	var payload webhookdomain.HotmartPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.metrics.IncWebhookEvent(string(subscriberdomain.ProviderHotmart), obsmetrics.WebhookOutcomeRejected)
		AbortWithError(c, webhookdomain.ErrInvalidPayload)
		return
	}

	subscriber, err := s.webhookSvc.IngestHotmart(c.Request.Context(), payload, raw)
	if err != nil {
		s.failWebhook(c, subscriberdomain.ProviderHotmart, err)
		return
	}

	s.acceptWebhook(c, subscriber, subscriberdomain.ProviderHotmart)
}

// HandleEduzzWebhook ingests an Eduzz delivery through the heuristic path.
func (s *Server) HandleEduzzWebhook(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, webhookdomain.ErrInvalidPayload)
		return
	}

	subscriber, err := s.webhookSvc.IngestGeneric(c.Request.Context(), subscriberdomain.ProviderEduzz, raw)
	if err != nil {
		s.failWebhook(c, subscriberdomain.ProviderEduzz, err)
		return
	}

	s.acceptWebhook(c, subscriber, subscriberdomain.ProviderEduzz)
}

// HandleWebhook ingests an untagged delivery, inferring the provider from
// headers and payload content.
func (s *Server) HandleWebhook(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, webhookdomain.ErrInvalidPayload)
		return
	}

	subscriber, provider, err := s.webhookSvc.Ingest(c.Request.Context(), raw, c.Request.Header)
	if err != nil {
		s.failWebhook(c, provider, err)
		return
	}

	s.acceptWebhook(c, subscriber, provider)
}

func (s *Server) acceptWebhook(c *gin.Context, subscriber subscriberdomain.Subscriber, provider subscriberdomain.Provider) {
	s.metrics.IncWebhookEvent(string(provider), obsmetrics.WebhookOutcomeAccepted)

	c.Header("Location", "/subscribers/"+subscriber.ID.String())
	c.JSON(http.StatusCreated, webhookResponse{
		Status:   "success",
		ID:       subscriber.ID.String(),
		Email:    subscriber.Email,
		Name:     subscriber.Name,
		Provider: string(provider),
	})
}

func (s *Server) failWebhook(c *gin.Context, provider subscriberdomain.Provider, err error) {
	outcome := obsmetrics.WebhookOutcomeFailed
	if webhookdomain.IsValidationErr(err) {
		outcome = obsmetrics.WebhookOutcomeRejected
	} else {
		s.log.Error("webhook processing failed",
			zap.String("provider", string(provider)),
			zap.Error(err))
	}
	s.metrics.IncWebhookEvent(string(provider), outcome)
	AbortWithError(c, err)
}
