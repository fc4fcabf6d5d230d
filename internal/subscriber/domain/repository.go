package domain

import (
	"context"

	"github.com/coursegate/coursegate/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Email    string
	Provider Provider
}

type Repository interface {
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Subscriber, error)
	Insert(ctx context.Context, db *gorm.DB, subscriber *Subscriber) error
	Update(ctx context.Context, db *gorm.DB, subscriber *Subscriber) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Subscriber, error)
}
