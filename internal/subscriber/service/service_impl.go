package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/coursegate/coursegate/internal/subscriber/domain"
	"github.com/coursegate/coursegate/pkg/db"
	"github.com/coursegate/coursegate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscriber.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Upsert is the reconciliation path for every inbound webhook. Concurrent
// deliveries for the same email race on the unique email constraint; the
// store's rejection is the conflict signal and the authoritative row is
// always recovered by re-reading. A duplicate-key error never escapes.
func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest, provider domain.Provider) (domain.Subscriber, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return domain.Subscriber{}, domain.ErrInvalidEmail
	}
	if provider == "" {
		provider = domain.ProviderUnknown
	}

	existing, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.Subscriber{}, err
	}

	if existing != nil {
		return s.update(ctx, existing, req, provider)
	}

	subscriber := domain.Subscriber{
		ID:            s.genID.Generate(),
		Name:          req.Name,
		Email:         email,
		Provider:      provider,
		CreatedAt:     time.Now().UTC(),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Document:      req.Document,
		Zipcode:       req.Zipcode,
		City:          req.City,
		State:         req.State,
		Country:       req.Country,
		ProductID:     req.ProductID,
		ProductName:   req.ProductName,
		TransactionID: req.TransactionID,
		Price:         req.Price,
		Currency:      req.Currency,
		PurchaseDate:  req.PurchaseDate,
	}

	// Re-check before inserting: a racing delivery may have created the row
	// between the first read and here.
	already, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.Subscriber{}, err
	}
	if already != nil {
		s.log.Info("subscriber found on second check, returning existing",
			zap.String("email", email))
		return *already, nil
	}

	s.log.Info("creating subscriber", zap.String("email", email))
	if insertErr := s.repo.Insert(ctx, s.db, &subscriber); insertErr != nil {
		return s.recover(ctx, email, insertErr)
	}

	return subscriber, nil
}

func (s *Service) update(ctx context.Context, existing *domain.Subscriber, req domain.UpsertRequest, provider domain.Provider) (domain.Subscriber, error) {
	changed := s.applyDiff(existing, req)
	if existing.Provider != provider {
		existing.Provider = provider
		changed = true
	}

	if !changed {
		s.log.Info("subscriber unchanged, skipping write",
			zap.String("email", existing.Email))
		return *existing, nil
	}

	s.log.Info("updating subscriber", zap.String("email", existing.Email))
	if saveErr := s.repo.Update(ctx, s.db, existing); saveErr != nil {
		return s.recover(ctx, existing.Email, saveErr)
	}

	return *existing, nil
}

// recover re-reads the authoritative row after a failed write. Only when the
// re-read finds nothing does the original store error surface.
func (s *Service) recover(ctx context.Context, email string, cause error) (domain.Subscriber, error) {
	if db.IsDuplicateKeyErr(cause) {
		s.log.Warn("duplicate email on save, recovering existing row",
			zap.String("email", email))
	} else {
		s.log.Warn("subscriber save failed, attempting recovery",
			zap.String("email", email),
			zap.Error(cause))
	}

	row, err := s.repo.FindByEmail(ctx, s.db, email)
	if err == nil && row != nil {
		return *row, nil
	}
	return domain.Subscriber{}, cause
}

func (s *Service) applyDiff(subscriber *domain.Subscriber, req domain.UpsertRequest) bool {
	changed := false

	if req.Name != "" && req.Name != subscriber.Name {
		s.log.Info("updating subscriber name",
			zap.String("email", subscriber.Email),
			zap.String("from", subscriber.Name),
			zap.String("to", req.Name))
		subscriber.Name = req.Name
		changed = true
	}

	setString := func(dst *string, src string) {
		if src != "" && src != *dst {
			*dst = src
			changed = true
		}
	}
	setString(&subscriber.FirstName, req.FirstName)
	setString(&subscriber.LastName, req.LastName)
	setString(&subscriber.Phone, req.Phone)
	setString(&subscriber.Document, req.Document)
	setString(&subscriber.Zipcode, req.Zipcode)
	setString(&subscriber.City, req.City)
	setString(&subscriber.State, req.State)
	setString(&subscriber.Country, req.Country)
	setString(&subscriber.ProductID, req.ProductID)
	setString(&subscriber.ProductName, req.ProductName)
	setString(&subscriber.TransactionID, req.TransactionID)
	setString(&subscriber.Currency, req.Currency)

	if req.Price != nil && (subscriber.Price == nil || !req.Price.Equal(*subscriber.Price)) {
		price := *req.Price
		subscriber.Price = &price
		changed = true
	}
	if req.PurchaseDate != nil && (subscriber.PurchaseDate == nil || !req.PurchaseDate.Equal(*subscriber.PurchaseDate)) {
		purchaseDate := *req.PurchaseDate
		subscriber.PurchaseDate = &purchaseDate
		changed = true
	}

	return changed
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		Email:    strings.TrimSpace(req.Email),
		Provider: domain.Provider(strings.ToUpper(strings.TrimSpace(req.Provider))),
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(subscriber *domain.Subscriber) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        subscriber.ID.String(),
			CreatedAt: subscriber.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	subscribers := make([]domain.Subscriber, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		subscribers = append(subscribers, *item)
	}

	resp := domain.ListResponse{Subscribers: subscribers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}
