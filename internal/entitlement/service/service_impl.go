package service

import (
	"context"
	"strings"

	"github.com/coursegate/coursegate/internal/entitlement/domain"
	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	SubscriberRepo subscriberdomain.Repository
	Lookup         domain.ClubLookup `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	subscriberRepo subscriberdomain.Repository
	lookup         domain.ClubLookup
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("entitlement.service"),
		subscriberRepo: p.SubscriberRepo,
		lookup:         p.Lookup,
	}
}

func (s *Service) IsActiveMember(ctx context.Context, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, nil
	}

	subscriber, err := s.subscriberRepo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return false, err
	}
	if subscriber != nil {
		return true, nil
	}

	if s.lookup == nil {
		return false, nil
	}

	users, err := s.lookup.UsersByEmail(ctx, email)
	if err != nil {
		return false, err
	}

	for _, user := range users {
		if user.Status == domain.ClubStatusActive {
			return true, nil
		}
	}

	return false, nil
}
