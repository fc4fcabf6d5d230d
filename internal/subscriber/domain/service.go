package domain

import (
	"context"
	"errors"
	"time"

	"github.com/coursegate/coursegate/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

// UpsertRequest is the canonical subscription record normalized from a
// webhook payload. Email is the natural key; every other field is optional
// and only overwrites stored state when present.
type UpsertRequest struct {
	Name  string
	Email string

	FirstName string
	LastName  string
	Phone     string
	Document  string
	Zipcode   string
	City      string
	State     string
	Country   string

	ProductID     string
	ProductName   string
	TransactionID string
	Price         *decimal.Decimal
	Currency      string
	PurchaseDate  *time.Time
}

type ListRequest struct {
	PageToken string
	PageSize  int32
	Email     string
	Provider  string
}

type ListResponse struct {
	pagination.PageInfo
	Subscribers []Subscriber `json:"subscribers"`
}

type Service interface {
	// Upsert reconciles the normalized record into storage, creating or
	// updating the row keyed by email. Duplicate-key conflicts from racing
	// writers are resolved internally; the returned subscriber is always
	// the authoritative row.
	Upsert(ctx context.Context, req UpsertRequest, provider Provider) (Subscriber, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidProvider = errors.New("invalid_provider")
)
