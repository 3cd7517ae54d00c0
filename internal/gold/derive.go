package gold

import (
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/sells-group/medallion-cli/internal/model"
)

// Composite score weights and grade scale.
const (
	RevenueWeight = 0.5
	GradeWeight   = 0.5
	GradeScale    = float64(model.MaxGrade)
)

// Derive fills the derived metrics and dense ranks of rows in place.
func Derive(rows []model.ProductPerformance) {
	maxRevenue := decimal.Zero
	for i := range rows {
		if rows[i].Revenue.GreaterThan(maxRevenue) {
			maxRevenue = rows[i].Revenue
		}
	}

	for i := range rows {
		p := &rows[i]
		if p.SaleCount > 0 {
			p.ResponseRate = float64(p.ReviewCount) / float64(p.SaleCount) * 100
		}
		if maxRevenue.IsPositive() {
			p.NormalizedRevenue = p.Revenue.Div(maxRevenue).InexactFloat64()
		}
		p.NormalizedGrade = p.GradeMean / GradeScale
		p.CompositeScore = RevenueWeight*p.NormalizedRevenue + GradeWeight*p.NormalizedGrade
		sanitize(p)
	}

	denseRank(rows, func(a, b *model.ProductPerformance) int { return b.Revenue.Cmp(a.Revenue) },
		func(p *model.ProductPerformance, r int) { p.RankRevenue = r })
	denseRank(rows, func(a, b *model.ProductPerformance) int { return cmpFloat(b.GradeMean, a.GradeMean) },
		func(p *model.ProductPerformance, r int) { p.RankGrade = r })
	denseRank(rows, func(a, b *model.ProductPerformance) int { return cmpFloat(b.CompositeScore, a.CompositeScore) },
		func(p *model.ProductPerformance, r int) { p.RankComposite = r })
}

// sanitize replaces NaN and infinities in every float metric with 0.
func sanitize(p *model.ProductPerformance) {
	for _, f := range []*float64{
		&p.GradeMean, &p.GradeStddev, &p.SalesPerDay,
		&p.ResponseRate, &p.NormalizedRevenue, &p.NormalizedGrade, &p.CompositeScore,
	} {
		*f = finite(*f)
	}
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// denseRank assigns 1-based dense ranks following cmp order. Equal values
// share a rank and the next distinct value takes the following integer.
func denseRank(rows []model.ProductPerformance, cmp func(a, b *model.ProductPerformance) int, set func(p *model.ProductPerformance, rank int)) {
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) int { return cmp(&rows[i], &rows[j]) })

	rank := 0
	for k, idx := range order {
		if k == 0 || cmp(&rows[order[k-1]], &rows[idx]) != 0 {
			rank++
		}
		set(&rows[idx], rank)
	}
}

// Stats reduces the final rows into the global roll-up. MeanGrade is the
// mean of grade means over products that have reviews.
func Stats(rows []model.ProductPerformance) model.GlobalStats {
	var s model.GlobalStats
	var gradeSum float64
	reviewed := 0
	revenue := decimal.Zero
	s.ProductCount = len(rows)
	for _, p := range rows {
		revenue = revenue.Add(p.Revenue)
		s.TotalSales += p.SaleCount
		s.TotalReviews += p.ReviewCount
		if p.SaleCount > 0 {
			s.ActiveProducts++
		}
		if p.ReviewCount > 0 {
			gradeSum += p.GradeMean
			reviewed++
		}
	}
	s.TotalRevenue = revenue.InexactFloat64()
	if reviewed > 0 {
		s.MeanGrade = finite(gradeSum / float64(reviewed))
	}
	return s
}
