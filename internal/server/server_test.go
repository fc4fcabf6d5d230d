package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/coursegate/coursegate/internal/config"
	entitlementdomain "github.com/coursegate/coursegate/internal/entitlement/domain"
	"github.com/coursegate/coursegate/internal/hotmart"
	"github.com/coursegate/coursegate/internal/server"
	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
	webhookdomain "github.com/coursegate/coursegate/internal/webhook/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubWebhookService struct {
	subscriber subscriberdomain.Subscriber
	provider   subscriberdomain.Provider
	err        error
}

func (s *stubWebhookService) IngestHotmart(ctx context.Context, payload webhookdomain.HotmartPayload, raw []byte) (subscriberdomain.Subscriber, error) {
	return s.subscriber, s.err
}

func (s *stubWebhookService) IngestGeneric(ctx context.Context, provider subscriberdomain.Provider, raw []byte) (subscriberdomain.Subscriber, error) {
	return s.subscriber, s.err
}

func (s *stubWebhookService) Ingest(ctx context.Context, raw []byte, headers http.Header) (subscriberdomain.Subscriber, subscriberdomain.Provider, error) {
	return s.subscriber, s.provider, s.err
}

type stubSubscriberService struct {
	listResp subscriberdomain.ListResponse
}

func (s *stubSubscriberService) Upsert(ctx context.Context, req subscriberdomain.UpsertRequest, provider subscriberdomain.Provider) (subscriberdomain.Subscriber, error) {
	return subscriberdomain.Subscriber{}, nil
}

func (s *stubSubscriberService) List(ctx context.Context, req subscriberdomain.ListRequest) (subscriberdomain.ListResponse, error) {
	return s.listResp, nil
}

type stubEntitlementService struct {
	active bool
	err    error
}

func (s *stubEntitlementService) IsActiveMember(ctx context.Context, email string) (bool, error) {
	return s.active, s.err
}

func newTestServer(t *testing.T, webhookSvc webhookdomain.Service, entitlementSvc entitlementdomain.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{AppName: "coursegate", Environment: "test"}
	engine := server.NewEngine(cfg, zap.NewNop())

	server.NewServer(server.ServerParams{
		Gin:            engine,
		Cfg:            cfg,
		Log:            zap.NewNop(),
		WebhookSvc:     webhookSvc,
		SubscriberSvc:  &stubSubscriberService{},
		EntitlementSvc: entitlementSvc,
	})

	return engine
}

func testSubscriber(t *testing.T) subscriberdomain.Subscriber {
	t.Helper()

	node, err := snowflake.NewNode(13)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return subscriberdomain.Subscriber{
		ID:       node.Generate(),
		Name:     "John Doe",
		Email:    "john@example.com",
		Provider: subscriberdomain.ProviderHotmart,
	}
}

func TestHealthEndpoint(t *testing.T) {
	engine := newTestServer(t, &stubWebhookService{}, &stubEntitlementService{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "coursegate", body["service"])
}

func TestHotmartWebhookAccepted(t *testing.T) {
	subscriber := testSubscriber(t)
	engine := newTestServer(t, &stubWebhookService{subscriber: subscriber}, &stubEntitlementService{})

	payload := `{"event": "PURCHASE_APPROVED", "data": {"buyer": {"email": "john@example.com", "name": "John Doe"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/hotmart", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/subscribers/"+subscriber.ID.String(), rec.Header().Get("Location"))

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, subscriber.ID.String(), body["id"])
	assert.Equal(t, "john@example.com", body["email"])
	assert.Equal(t, "HOTMART", body["provider"])
}

func TestHotmartWebhookRejectsInvalidJSON(t *testing.T) {
	engine := newTestServer(t, &stubWebhookService{}, &stubEntitlementService{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/hotmart", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	assert.Equal(t, "INVALID_JSON", body["code"])
}

func TestEduzzWebhookValidationFailure(t *testing.T) {
	engine := newTestServer(t, &stubWebhookService{err: webhookdomain.ErrNameRequired}, &stubEntitlementService{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/eduzz", strings.NewReader(`{"email": "jane@example.com"}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	assert.Equal(t, "INVALID_REQUEST", body["code"])
	assert.Equal(t, "name is required", body["message"])
}

func TestGenericWebhookReportsDetectedProvider(t *testing.T) {
	subscriber := testSubscriber(t)
	engine := newTestServer(t, &stubWebhookService{
		subscriber: subscriber,
		provider:   subscriberdomain.ProviderUnknown,
	}, &stubEntitlementService{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"name": "John", "email": "john@example.com"}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	assert.Equal(t, "UNKNOWN", body["provider"])
}

func TestValidateEmail(t *testing.T) {
	engine := newTestServer(t, &stubWebhookService{}, &stubEntitlementService{active: true})

	req := httptest.NewRequest(http.MethodPost, "/validate-email", strings.NewReader(`{"email": "jane@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	assert.Equal(t, "jane@example.com", body["email"])
	assert.Equal(t, true, body["is_student"])
	assert.Equal(t, "success", body["status"])
}

func TestValidateEmailRejectsBlank(t *testing.T) {
	engine := newTestServer(t, &stubWebhookService{}, &stubEntitlementService{})

	req := httptest.NewRequest(http.MethodPost, "/validate-email", strings.NewReader(`{"email": "  "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	assert.Equal(t, "INVALID_EMAIL", body["code"])
}

func TestValidateEmailUpstreamRateLimit(t *testing.T) {
	engine := newTestServer(t, &stubWebhookService{}, &stubEntitlementService{
		err: &hotmart.APIError{Message: "too many requests", StatusCode: http.StatusTooManyRequests},
	})

	req := httptest.NewRequest(http.MethodPost, "/validate-email", strings.NewReader(`{"email": "jane@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	assert.Equal(t, "RATE_LIMIT", body["code"])
	assert.EqualValues(t, 60, body["retry_after"])
}
