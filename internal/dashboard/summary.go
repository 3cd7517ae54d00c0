package dashboard

import (
	"math"

	"github.com/sells-group/medallion-cli/internal/model"
)

// Correlation bases.
const (
	BasisSaleCount = "sale_count"
	BasisRevenue   = "revenue"
)

// Summary answers whether the best-selling products are also the best
// rated.
type Summary struct {
	Basis          string  `json:"basis"`
	Correlation    float64 `json:"correlation"`
	Defined        bool    `json:"correlation_defined"`
	Interpretation string  `json:"interpretation"`
	Reviewed       int     `json:"reviewed_products"`
	Products       int     `json:"products"`
	Path           string  `json:"path,omitempty"`
}

// Summarize correlates sales volume with grade mean over products that have
// reviews. Revenue replaces volume when every product sold the same number
// of units.
func Summarize(rows []model.ProductPerformance) Summary {
	reviewed := withReviews(rows)
	s := Summary{Products: len(rows), Reviewed: len(reviewed)}

	xs, ys, basis := axes(reviewed)
	s.Basis = basis
	if r, ok := Pearson(xs, ys); ok {
		s.Correlation = r
		s.Defined = true
	}
	s.Interpretation = Interpret(s.Correlation, s.Defined)
	return s
}

func withReviews(rows []model.ProductPerformance) []model.ProductPerformance {
	out := make([]model.ProductPerformance, 0, len(rows))
	for _, p := range rows {
		if p.ReviewCount > 0 {
			out = append(out, p)
		}
	}
	return out
}

// axes returns the scatter coordinates: sales volume (or revenue) against
// grade mean.
func axes(rows []model.ProductPerformance) (xs, ys []float64, basis string) {
	basis = BasisSaleCount
	if !varies(rows, func(p model.ProductPerformance) float64 { return float64(p.SaleCount) }) {
		basis = BasisRevenue
	}
	xs = make([]float64, len(rows))
	ys = make([]float64, len(rows))
	for i, p := range rows {
		if basis == BasisRevenue {
			xs[i] = p.Revenue.InexactFloat64()
		} else {
			xs[i] = float64(p.SaleCount)
		}
		ys[i] = p.GradeMean
	}
	return xs, ys, basis
}

func varies(rows []model.ProductPerformance, f func(model.ProductPerformance) float64) bool {
	for i := 1; i < len(rows); i++ {
		if f(rows[i]) != f(rows[0]) {
			return true
		}
	}
	return false
}

// Pearson returns the correlation coefficient of xs and ys. It is undefined
// for fewer than two points or when either series is constant.
func Pearson(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0, false
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	r := sxy / math.Sqrt(sxx*syy)
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// LinearFit returns the least-squares line through the points.
func LinearFit(xs, ys []float64) (slope, intercept float64, ok bool) {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0, 0, false
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx float64
	for i := range xs {
		dx := xs[i] - mx
		sxy += dx * (ys[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, 0, false
	}
	slope = sxy / sxx
	return slope, my - slope*mx, true
}

// Interpret turns a correlation into a sentence.
func Interpret(r float64, defined bool) string {
	switch {
	case !defined:
		return "Not enough reviewed products with varying sales to compute a correlation"
	case r > 0.5:
		return "Strong positive correlation: best-selling products tend to have better grades"
	case r > 0.2:
		return "Moderate positive correlation: slight link between sales volume and satisfaction"
	case r > -0.2:
		return "No significant correlation: no clear link between sales volume and satisfaction"
	default:
		return "Negative correlation: best-selling products tend to have worse grades"
	}
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
