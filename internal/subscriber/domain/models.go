package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Provider identifies the platform that originated a purchase event.
type Provider string

const (
	ProviderHotmart Provider = "HOTMART"
	ProviderEduzz   Provider = "EDUZZ"
	ProviderUnknown Provider = "UNKNOWN"
)

type Subscriber struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null;uniqueIndex:subscribers_email_key" json:"email"`
	Provider  Provider     `gorm:"type:text;not null;default:'UNKNOWN'" json:"provider"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Document  string `json:"document,omitempty"`
	Zipcode   string `json:"zipcode,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Country   string `json:"country,omitempty"`

	ProductID     string           `json:"product_id,omitempty"`
	ProductName   string           `json:"product_name,omitempty"`
	TransactionID string           `json:"transaction_id,omitempty"`
	Price         *decimal.Decimal `gorm:"type:numeric" json:"price,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	PurchaseDate  *time.Time       `json:"purchase_date,omitempty"`
}

func (Subscriber) TableName() string { return "subscribers" }
