package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductPerformance is one gold row: every metric known about a product.
//
// Metrics from a side of the join the product does not appear on are zero.
// HasSales and HasReviews record which side actually contributed, so a
// grade mean of 0 can be told apart from "no reviews".
type ProductPerformance struct {
	ProductID string `json:"product_id"`

	Revenue        decimal.Decimal `json:"revenue"`
	SaleCount      int             `json:"sale_count"`
	PriceMean      decimal.Decimal `json:"price_mean"`
	PriceMin       decimal.Decimal `json:"price_min"`
	PriceMax       decimal.Decimal `json:"price_max"`
	RevenuePerSale decimal.Decimal `json:"revenue_per_sale"`

	GradeMean   float64 `json:"grade_mean"`
	ReviewCount int     `json:"review_count"`
	GradeMin    int     `json:"grade_min"`
	GradeMax    int     `json:"grade_max"`
	GradeStddev float64 `json:"grade_stddev"`

	FirstSaleDate *time.Time `json:"first_sale_date,omitempty"`
	LastSaleDate  *time.Time `json:"last_sale_date,omitempty"`
	ActiveDays    int        `json:"active_days"`
	SalesPerDay   float64    `json:"sales_per_day"`

	ResponseRate      float64 `json:"response_rate"`
	NormalizedRevenue float64 `json:"normalized_revenue"`
	NormalizedGrade   float64 `json:"normalized_grade"`
	CompositeScore    float64 `json:"composite_score"`
	RankRevenue       int     `json:"rank_revenue"`
	RankGrade         int     `json:"rank_grade"`
	RankComposite     int     `json:"rank_composite"`

	HasSales   bool `json:"has_sales"`
	HasReviews bool `json:"has_reviews"`
}

// GlobalStats is the per-run roll-up over all gold rows.
type GlobalStats struct {
	TotalRevenue   float64 `json:"total_revenue" yaml:"total_revenue"`
	TotalSales     int     `json:"total_sales" yaml:"total_sales"`
	MeanGrade      float64 `json:"mean_grade" yaml:"mean_grade"`
	TotalReviews   int     `json:"total_reviews" yaml:"total_reviews"`
	ActiveProducts int     `json:"active_products" yaml:"active_products"`
	ProductCount   int     `json:"product_count" yaml:"product_count"`
}
