package silver

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/medallion-cli/internal/model"
)

func TestParseProductID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1001", "1001", false},
		{" 1001 ", "1001", false},
		{"1001.0", "1001", false},
		{"1001.00", "1001", false},
		{"1001.5", "1001.5", false},
		{"007", "007", false},
		{"P1", "P1", false},
		{"", "", true},
		{"   ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProductID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		reason string
	}{
		{"10.00", "10", ""},
		{" 12.5 ", "12.5", ""},
		{"0", "0", ""},
		{"12,50", "12.5", ""},
		{"1.23456", "1.2346", ""},
		{"1,000.50", "", "not a decimal"},
		{"-1", "", "negative"},
		{"abc", "", "not a decimal"},
		{"", "", "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.reason != "" {
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, FieldPrice, pe.Field)
				assert.Equal(t, tt.reason, pe.Reason)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), got.String())
		})
	}
}

func TestParseDate(t *testing.T) {
	positional := []string{"01-02-2006", "2006-01-02"}
	named := []string{"02/01/2006", "02-01-2006", "2006-01-02"}

	tests := []struct {
		name    string
		in      string
		layouts []string
		want    time.Time
	}{
		{"month first", "03-04-2025", positional, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"day first slash", "03/04/2025", named, time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"day first dash", "03-04-2025", named, time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"iso", "2025-01-02", nil, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"rfc3339", "2025-01-02T23:30:00+02:00", nil, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"datetime", "2025-01-02 08:15:00", nil, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"month first invalid falls to none", "13-01-2025", positional, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in, tt.layouts)
			if tt.want.IsZero() {
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, FieldDate, pe.Field)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), got.String())
		})
	}
}

func TestParseGrade(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"5", 5, false},
		{"4.0", 4, false},
		{" 3 ", 3, false},
		{"0", 0, true},
		{"6", 0, true},
		{"4.5", 0, true},
		{"bien", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGrade(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanSale(t *testing.T) {
	sale, err := CleanSale(model.RawSale{ProductID: "1001.0", Price: "9.90", Date: "01-15-2025", Client: " Alice "}, []string{"01-02-2006"})
	require.NoError(t, err)
	assert.Equal(t, "1001", sale.ProductID)
	assert.Equal(t, "9.9", sale.Price.String())
	assert.Equal(t, "2025-01-15", sale.SaleDate.Format(time.DateOnly))
	assert.Equal(t, "Alice", sale.ClientID)

	_, err = CleanSale(model.RawSale{ProductID: "1", Price: "1", Date: "2025-01-01"}, nil)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FieldClient, pe.Field)
}

func TestCleanReview(t *testing.T) {
	r, err := CleanReview(model.RawReview{Grade: "4", Comment: "ok", ProductID: "7"})
	require.NoError(t, err)
	assert.Equal(t, model.Review{ProductID: "7", Grade: 4}, r)

	_, err = CleanReview(model.RawReview{Grade: "4"})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FieldProductID, pe.Field)
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Field: FieldGrade, Value: "9", Reason: "outside 1..5"}
	assert.Equal(t, `silver: grade "9": outside 1..5`, err.Error())
}
