// Package gold turns conformed sales and reviews into per-product
// performance metrics and a global roll-up.
package gold

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/medallion-cli/internal/model"
)

// meanPlaces is the number of decimal places kept for price means.
const meanPlaces = 4

// DegenerateStatisticError records a statistic that is undefined for the
// data it was computed from. The metric is reported as 0 instead.
type DegenerateStatisticError struct {
	Statistic string
	ProductID string
	Reason    string
}

func (e *DegenerateStatisticError) Error() string {
	return fmt.Sprintf("gold: %s undefined for product %s: %s", e.Statistic, e.ProductID, e.Reason)
}

// JoinReport describes the outer join of the sales and review aggregates.
type JoinReport struct {
	Both        int                         `json:"both"`
	SalesOnly   int                         `json:"sales_only"`
	ReviewsOnly int                         `json:"reviews_only"`
	Degenerate  []*DegenerateStatisticError `json:"-"`
}

type salesAgg struct {
	revenue  decimal.Decimal
	count    int
	min, max decimal.Decimal
	first    time.Time
	last     time.Time
}

type reviewAgg struct {
	sum      int
	count    int
	min, max int
	grades   []int
}

// Aggregate groups sales and reviews by product and full-outer-joins the
// two aggregates. Metrics from the missing side are zero. Rows are ordered
// by product id.
func Aggregate(sales []model.Sale, reviews []model.Review) ([]model.ProductPerformance, *JoinReport) {
	byProductSales := make(map[string]*salesAgg)
	for _, s := range sales {
		a, ok := byProductSales[s.ProductID]
		if !ok {
			a = &salesAgg{min: s.Price, max: s.Price, first: s.SaleDate, last: s.SaleDate}
			byProductSales[s.ProductID] = a
		}
		a.revenue = a.revenue.Add(s.Price)
		a.count++
		if s.Price.LessThan(a.min) {
			a.min = s.Price
		}
		if s.Price.GreaterThan(a.max) {
			a.max = s.Price
		}
		if s.SaleDate.Before(a.first) {
			a.first = s.SaleDate
		}
		if s.SaleDate.After(a.last) {
			a.last = s.SaleDate
		}
	}

	byProductReviews := make(map[string]*reviewAgg)
	for _, r := range reviews {
		a, ok := byProductReviews[r.ProductID]
		if !ok {
			a = &reviewAgg{min: r.Grade, max: r.Grade}
			byProductReviews[r.ProductID] = a
		}
		a.sum += r.Grade
		a.count++
		a.min = min(a.min, r.Grade)
		a.max = max(a.max, r.Grade)
		a.grades = append(a.grades, r.Grade)
	}

	ids := make([]string, 0, len(byProductSales)+len(byProductReviews))
	for id := range byProductSales {
		ids = append(ids, id)
	}
	for id := range byProductReviews {
		if _, ok := byProductSales[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, CompareProductIDs)

	report := &JoinReport{}
	rows := make([]model.ProductPerformance, 0, len(ids))
	for _, id := range ids {
		p := model.ProductPerformance{ProductID: id}
		sa, hasSales := byProductSales[id]
		ra, hasReviews := byProductReviews[id]

		if hasSales {
			applySales(&p, sa)
		}
		if hasReviews {
			if d := applyReviews(&p, ra); d != nil {
				report.Degenerate = append(report.Degenerate, d)
			}
		}

		switch {
		case hasSales && hasReviews:
			report.Both++
		case hasSales:
			report.SalesOnly++
		default:
			report.ReviewsOnly++
		}
		rows = append(rows, p)
	}
	return rows, report
}

func applySales(p *model.ProductPerformance, a *salesAgg) {
	n := decimal.NewFromInt(int64(a.count))
	p.HasSales = true
	p.Revenue = a.revenue
	p.SaleCount = a.count
	p.PriceMean = a.revenue.DivRound(n, meanPlaces)
	p.PriceMin = a.min
	p.PriceMax = a.max
	p.RevenuePerSale = p.PriceMean

	first, last := a.first, a.last
	p.FirstSaleDate = &first
	p.LastSaleDate = &last
	p.ActiveDays = int(last.Sub(first).Hours()/24) + 1
	p.SalesPerDay = float64(a.count) / float64(p.ActiveDays)
}

// applyReviews fills the review metrics. The grade standard deviation is
// the sample (n-1) deviation; a single review yields a degenerate 0.
func applyReviews(p *model.ProductPerformance, a *reviewAgg) *DegenerateStatisticError {
	p.HasReviews = true
	p.ReviewCount = a.count
	p.GradeMean = float64(a.sum) / float64(a.count)
	p.GradeMin = a.min
	p.GradeMax = a.max

	if a.count < 2 {
		p.GradeStddev = 0
		return &DegenerateStatisticError{Statistic: "grade_stddev", ProductID: p.ProductID, Reason: "single review"}
	}
	var ss float64
	for _, g := range a.grades {
		d := float64(g) - p.GradeMean
		ss += d * d
	}
	p.GradeStddev = math.Sqrt(ss / float64(a.count-1))
	return nil
}

// CompareProductIDs orders integral ids numerically and everything else
// lexically, integral ids first.
func CompareProductIDs(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return strings.Compare(a, b)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
