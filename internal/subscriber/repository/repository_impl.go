package repository

import (
	"context"
	"errors"
	"time"

	"github.com/coursegate/coursegate/internal/subscriber/domain"
	"github.com/coursegate/coursegate/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Subscriber, error) {
	var subscriber domain.Subscriber
	err := db.WithContext(ctx).
		Where("email = ?", email).
		First(&subscriber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscriber, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscriber *domain.Subscriber) error {
	return db.WithContext(ctx).Create(subscriber).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscriber *domain.Subscriber) error {
	return db.WithContext(ctx).Save(subscriber).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Subscriber, error) {
	var subscribers []*domain.Subscriber
	stmt := db.WithContext(ctx).Model(&domain.Subscriber{})
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	if filter.Provider != "" {
		stmt = stmt.Where("provider = ?", filter.Provider)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&subscribers).Error
	if err != nil {
		return nil, err
	}
	return subscribers, nil
}
