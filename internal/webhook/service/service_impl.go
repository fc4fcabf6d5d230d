package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
	"github.com/coursegate/coursegate/internal/webhook/domain"
	"github.com/coursegate/coursegate/internal/webhook/extract"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Candidate key synonyms for the heuristic generic path.
var (
	firstNameKeys = []string{"first_name", "firstName", "first"}
	lastNameKeys  = []string{"last_name", "lastName", "last"}
	phoneKeys     = []string{"phone", "checkout_phone", "phone_number"}
	documentKeys  = []string{"document", "cpf", "cnpj"}
	zipcodeKeys   = []string{"zipcode", "zip", "postal_code"}
	cityKeys      = []string{"city"}
	stateKeys     = []string{"state"}
	countryKeys   = []string{"country", "country_iso"}
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	SubscriberSvc subscriberdomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	subscriberSvc subscriberdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("webhook.service"),
		genID:         p.GenID,
		subscriberSvc: p.SubscriberSvc,
	}
}

func (s *Service) IngestHotmart(ctx context.Context, payload domain.HotmartPayload, raw []byte) (subscriberdomain.Subscriber, error) {
	req, err := normalizeHotmart(payload)
	if err != nil {
		return subscriberdomain.Subscriber{}, err
	}

	subscriber, err := s.subscriberSvc.Upsert(ctx, req, subscriberdomain.ProviderHotmart)
	if err != nil {
		return subscriberdomain.Subscriber{}, err
	}

	s.recordEvent(ctx, subscriberdomain.ProviderHotmart, payload.Event, payload.ID, subscriber.ID, raw)
	return subscriber, nil
}

func (s *Service) IngestGeneric(ctx context.Context, provider subscriberdomain.Provider, raw []byte) (subscriberdomain.Subscriber, error) {
	tree, err := decodeTree(raw)
	if err != nil {
		return subscriberdomain.Subscriber{}, err
	}

	req, err := normalizeGeneric(provider, tree)
	if err != nil {
		return subscriberdomain.Subscriber{}, err
	}

	subscriber, err := s.subscriberSvc.Upsert(ctx, req, provider)
	if err != nil {
		return subscriberdomain.Subscriber{}, err
	}

	s.recordEvent(ctx, provider, stringAt(tree, "event"), stringAt(tree, "id"), subscriber.ID, raw)
	return subscriber, nil
}

func (s *Service) Ingest(ctx context.Context, raw []byte, headers http.Header) (subscriberdomain.Subscriber, subscriberdomain.Provider, error) {
	provider := domain.DetectProvider(headers, raw)

	tree, err := decodeTree(raw)
	if err != nil {
		return subscriberdomain.Subscriber{}, provider, err
	}

	req, err := normalizeGeneric(provider, tree)
	if err != nil {
		return subscriberdomain.Subscriber{}, provider, err
	}

	storedProvider := provider
	if provider == subscriberdomain.ProviderUnknown {
		// Legacy compatibility: uninferred deliveries persist only the
		// identity fields under the Hotmart tag, as the historical
		// consumers expect. The response still reports UNKNOWN.
		req = subscriberdomain.UpsertRequest{Name: req.Name, Email: req.Email}
		storedProvider = subscriberdomain.ProviderHotmart
	}

	subscriber, err := s.subscriberSvc.Upsert(ctx, req, storedProvider)
	if err != nil {
		return subscriberdomain.Subscriber{}, provider, err
	}

	s.recordEvent(ctx, provider, stringAt(tree, "event"), stringAt(tree, "id"), subscriber.ID, raw)
	return subscriber, provider, nil
}

// recordEvent is best effort: a failed audit insert never fails the delivery.
func (s *Service) recordEvent(ctx context.Context, provider subscriberdomain.Provider, eventName, providerEventID string, subscriberID snowflake.ID, raw []byte) {
	event := domain.WebhookEvent{
		ID:              s.genID.Generate(),
		Provider:        provider,
		EventName:       eventName,
		ProviderEventID: providerEventID,
		SubscriberID:    subscriberID,
		Payload:         datatypes.JSON(raw),
		ReceivedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		s.log.Warn("failed to record webhook event",
			zap.String("provider", string(provider)),
			zap.Error(err))
	}
}

// normalizeHotmart projects the structured purchase-approved shape. Only the
// buyer email is mandatory; everything else is best effort.
func normalizeHotmart(payload domain.HotmartPayload) (subscriberdomain.UpsertRequest, error) {
	var req subscriberdomain.UpsertRequest

	if data := payload.Data; data != nil {
		if buyer := data.Buyer; buyer != nil {
			req.Email = buyer.Email
			if buyer.Name != "" {
				req.Name = buyer.Name
			} else {
				req.Name = buyer.FirstName
			}
			req.FirstName = buyer.FirstName
			req.LastName = buyer.LastName
			req.Phone = composePhone(buyer.CheckoutPhone, buyer.CheckoutPhoneCode)
			req.Document = buyer.Document
			if addr := buyer.Address; addr != nil {
				req.Zipcode = addr.Zipcode
				req.City = addr.City
				req.State = addr.State
				if addr.CountryISO != "" {
					req.Country = addr.CountryISO
				} else {
					req.Country = addr.Country
				}
			}
		}

		if product := data.Product; product != nil {
			if product.ID != nil {
				req.ProductID = strconv.FormatInt(*product.ID, 10)
			}
			req.ProductName = product.Name
		}

		if purchase := data.Purchase; purchase != nil {
			req.TransactionID = purchase.Transaction
			if price := purchase.Price; price != nil {
				req.Currency = price.CurrencyValue
				if price.Value != nil {
					value := *price.Value
					req.Price = &value
				}
			}
			req.PurchaseDate = purchase.ApprovedDate.Time()
		}
	}

	if strings.TrimSpace(req.Email) == "" {
		return subscriberdomain.UpsertRequest{}, domain.ErrEmailNotFound
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = localPart(req.Email)
	}

	return req, nil
}

// normalizeGeneric extracts identity fields heuristically. Non-Hotmart
// traffic is validated strictly; the Hotmart-tagged legacy shape only
// requires an email. The asymmetry is historical and kept for wire
// compatibility with existing producers.
func normalizeGeneric(provider subscriberdomain.Provider, tree map[string]any) (subscriberdomain.UpsertRequest, error) {
	email, _ := extract.FindEmail(tree)
	name, _ := extract.FindName(tree)

	if provider != subscriberdomain.ProviderHotmart {
		if !extract.HasKey(tree, "name") && strings.TrimSpace(name) == "" {
			return subscriberdomain.UpsertRequest{}, domain.ErrNameRequired
		}
		if strings.TrimSpace(email) == "" {
			return subscriberdomain.UpsertRequest{}, domain.ErrEmailNotFound
		}
		if !emailPattern.MatchString(email) {
			return subscriberdomain.UpsertRequest{}, domain.ErrInvalidEmailFormat
		}
	}

	if strings.TrimSpace(email) == "" {
		return subscriberdomain.UpsertRequest{}, domain.ErrEmailNotFound
	}
	if strings.TrimSpace(name) == "" {
		name = localPart(email)
	}

	req := subscriberdomain.UpsertRequest{
		Name:  name,
		Email: email,
	}

	if provider == subscriberdomain.ProviderHotmart {
		fillFromHotmartTree(&req, tree)
	} else {
		first, _ := extract.FindByKey(tree, firstNameKeys)
		last, _ := extract.FindByKey(tree, lastNameKeys)
		phone, _ := extract.FindByKey(tree, phoneKeys)
		document, _ := extract.FindByKey(tree, documentKeys)
		zipcode, _ := extract.FindByKey(tree, zipcodeKeys)
		city, _ := extract.FindByKey(tree, cityKeys)
		state, _ := extract.FindByKey(tree, stateKeys)
		country, _ := extract.FindByKey(tree, countryKeys)
		req.FirstName = first
		req.LastName = last
		req.Phone = phone
		req.Document = document
		req.Zipcode = zipcode
		req.City = city
		req.State = state
		req.Country = country
	}

	return req, nil
}

// fillFromHotmartTree walks the data.buyer/product/purchase sections of a
// Hotmart payload that arrived without the typed shape.
func fillFromHotmartTree(req *subscriberdomain.UpsertRequest, tree map[string]any) {
	data, ok := tree["data"].(map[string]any)
	if !ok {
		return
	}

	if buyer, ok := data["buyer"].(map[string]any); ok {
		if first := stringAt(buyer, "first_name"); first != "" {
			req.FirstName = first
		} else {
			req.FirstName = stringAt(buyer, "firstName")
		}
		if last := stringAt(buyer, "last_name"); last != "" {
			req.LastName = last
		} else {
			req.LastName = stringAt(buyer, "lastName")
		}
		req.Phone = composePhone(stringAt(buyer, "checkout_phone"), stringAt(buyer, "checkout_phone_code"))
		req.Document = stringAt(buyer, "document")
		if address, ok := buyer["address"].(map[string]any); ok {
			req.Zipcode = stringAt(address, "zipcode")
			req.City = stringAt(address, "city")
			req.State = stringAt(address, "state")
			if iso := stringAt(address, "country_iso"); iso != "" {
				req.Country = iso
			} else {
				req.Country = stringAt(address, "country")
			}
		}
	}

	if product, ok := data["product"].(map[string]any); ok {
		switch id := product["id"].(type) {
		case json.Number:
			req.ProductID = id.String()
		case string:
			req.ProductID = id
		}
		req.ProductName = stringAt(product, "name")
	}

	if purchase, ok := data["purchase"].(map[string]any); ok {
		req.TransactionID = stringAt(purchase, "transaction")
		if price, ok := purchase["price"].(map[string]any); ok {
			req.Price = decimalAt(price, "value")
			req.Currency = stringAt(price, "currency_value")
		}
		if approved, ok := purchase["approved_date"].(json.Number); ok {
			if millis, err := strconv.ParseInt(approved.String(), 10, 64); err == nil {
				t := time.UnixMilli(millis).UTC()
				req.PurchaseDate = &t
			}
		}
	}
}

// decodeTree parses raw JSON keeping numbers as json.Number so decimal
// prices survive without a float round trip.
func decodeTree(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	return tree, nil
}

func composePhone(number, code string) string {
	if number == "" {
		return ""
	}
	if code == "" {
		return number
	}
	return "+" + code + " " + number
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

func stringAt(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func decimalAt(m map[string]any, key string) *decimal.Decimal {
	switch v := m[key].(type) {
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return &d
		}
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return &d
		}
	}
	return nil
}
