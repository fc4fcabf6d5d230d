package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// HotmartPayload is the purchase-approved webhook shape sent by Hotmart.
type HotmartPayload struct {
	ID           string      `json:"id"`
	CreationDate EpochMillis `json:"creation_date"`
	Event        string      `json:"event"`
	Version      string      `json:"version"`
	Data         *DataNode   `json:"data"`
}

type DataNode struct {
	Product  *Product  `json:"product"`
	Buyer    *Buyer    `json:"buyer"`
	Purchase *Purchase `json:"purchase"`
}

type Product struct {
	ID    *int64 `json:"id"`
	Ucode string `json:"ucode"`
	Name  string `json:"name"`
}

type Buyer struct {
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name"`
	CheckoutPhone     string   `json:"checkout_phone"`
	CheckoutPhoneCode string   `json:"checkout_phone_code"`
	Document          string   `json:"document"`
	Address           *Address `json:"address"`
}

type Address struct {
	Zipcode    string `json:"zipcode"`
	Country    string `json:"country"`
	City       string `json:"city"`
	State      string `json:"state"`
	CountryISO string `json:"country_iso"`
}

type Purchase struct {
	ApprovedDate EpochMillis `json:"approved_date"`
	Price        *Price      `json:"price"`
	Transaction  string      `json:"transaction"`
}

type Price struct {
	Value         *decimal.Decimal `json:"value"`
	CurrencyValue string           `json:"currency_value"`
}

// EpochMillis is an epoch-millisecond timestamp that tolerates malformed
// input: anything that does not parse as an integer leaves the value unset
// instead of failing the whole payload.
type EpochMillis struct {
	t *time.Time
}

func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	var raw json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	millis, err := strconv.ParseInt(raw.String(), 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(millis).UTC()
	e.t = &t
	return nil
}

func (e EpochMillis) Time() *time.Time {
	return e.t
}
