package silver

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
)

// Fields that can fail to parse.
const (
	FieldProductID = "product_id"
	FieldPrice     = "price"
	FieldDate      = "sale_date"
	FieldClient    = "client_id"
	FieldGrade     = "grade"
)

// fallbackDateLayouts are tried after a source's own layouts.
var fallbackDateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
}

// ParseError describes a single raw value that could not be conformed. The
// row carrying it is dropped.
type ParseError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("silver: %s %q: %s", e.Field, e.Value, e.Reason)
}

// ParseProductID canonicalises a product identifier. Integral numbers
// written with a fractional part ("1001.0") collapse to their integer form so
// that sources typing the id as number and as text agree.
func ParseProductID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ParseError{Field: FieldProductID, Value: s, Reason: "empty"}
	}
	if strings.Contains(s, ".") {
		if d, err := decimal.NewFromString(s); err == nil && d.IsInteger() {
			return d.Truncate(0).String(), nil
		}
	}
	return s, nil
}

// ParsePrice parses a non-negative decimal price rounded to lake.MoneyScale
// places. A lone comma is read as the decimal separator.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ParseError{Field: FieldPrice, Value: s, Reason: "empty"}
	}
	v := s
	if !strings.Contains(v, ".") && strings.Count(v, ",") == 1 {
		v = strings.Replace(v, ",", ".", 1)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &ParseError{Field: FieldPrice, Value: s, Reason: "not a decimal"}
	}
	if d.IsNegative() {
		return decimal.Zero, &ParseError{Field: FieldPrice, Value: s, Reason: "negative"}
	}
	return d.Round(lake.MoneyScale), nil
}

// ParseDate parses a calendar date trying the source layouts first, then
// the ISO fallbacks. The result is midnight UTC.
func ParseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ParseError{Field: FieldDate, Value: s, Reason: "empty"}
	}
	for _, set := range [][]string{layouts, fallbackDateLayouts} {
		for _, layout := range set {
			t, err := time.Parse(layout, s)
			if err != nil {
				continue
			}
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, &ParseError{Field: FieldDate, Value: s, Reason: "unrecognised date format"}
}

// ParseGrade parses an integral grade within the review domain. "4" and
// "4.0" are both accepted.
func ParseGrade(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ParseError{Field: FieldGrade, Value: s, Reason: "empty"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, &ParseError{Field: FieldGrade, Value: s, Reason: "not an integer"}
	}
	g := d.IntPart()
	if g < model.MinGrade || g > model.MaxGrade {
		return 0, &ParseError{Field: FieldGrade, Value: s, Reason: fmt.Sprintf("outside %d..%d", model.MinGrade, model.MaxGrade)}
	}
	return int(g), nil
}

// CleanSale conforms one raw sale row.
func CleanSale(raw model.RawSale, layouts []string) (model.Sale, error) {
	id, err := ParseProductID(raw.ProductID)
	if err != nil {
		return model.Sale{}, err
	}
	price, err := ParsePrice(raw.Price)
	if err != nil {
		return model.Sale{}, err
	}
	date, err := ParseDate(raw.Date, layouts)
	if err != nil {
		return model.Sale{}, err
	}
	client := strings.TrimSpace(raw.Client)
	if client == "" {
		return model.Sale{}, &ParseError{Field: FieldClient, Value: raw.Client, Reason: "empty"}
	}
	return model.Sale{ProductID: id, Price: price, SaleDate: date, ClientID: client}, nil
}

// CleanReview conforms one raw review row. The comment is not carried into
// the conformed table.
func CleanReview(raw model.RawReview) (model.Review, error) {
	id, err := ParseProductID(raw.ProductID)
	if err != nil {
		return model.Review{}, err
	}
	grade, err := ParseGrade(raw.Grade)
	if err != nil {
		return model.Review{}, err
	}
	return model.Review{ProductID: id, Grade: grade}, nil
}
