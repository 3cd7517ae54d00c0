package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawSale is one sale event as read from a bronze file. Every field is the
// trimmed source text; nothing has been validated yet.
type RawSale struct {
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Date      string `json:"date"`
	Client    string `json:"client"`
}

// RawReview is one review event as read from a bronze file. Grade and
// ProductID keep their textual form because sources disagree on JSON types.
type RawReview struct {
	Grade     string `json:"grade"`
	Comment   string `json:"comment"`
	ProductID string `json:"product_id"`
}

// Sale is a conformed (silver) sale row.
type Sale struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	SaleDate  time.Time       `json:"sale_date"`
	ClientID  string          `json:"client_id"`
}

// Key returns the identity used for cross-file deduplication.
func (s Sale) Key() string {
	return s.ProductID + "\x1f" + s.Price.String() + "\x1f" + s.SaleDate.Format(time.DateOnly) + "\x1f" + s.ClientID
}

// Review is a conformed (silver) review row.
type Review struct {
	ProductID string `json:"product_id"`
	Grade     int    `json:"grade"`
}

// MinGrade and MaxGrade bound the review grade domain.
const (
	MinGrade = 1
	MaxGrade = 5
)
