package gold

import (
	"context"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
)

// Columns is the gold table layout, in output order.
var Columns = []string{
	"product_id",
	"revenue", "sale_count", "price_mean", "price_min", "price_max", "revenue_per_sale",
	"grade_mean", "review_count", "grade_min", "grade_max", "grade_stddev",
	"first_sale_date", "last_sale_date", "active_days", "sales_per_day",
	"response_rate", "normalized_revenue", "normalized_grade", "composite_score",
	"rank_revenue", "rank_grade", "rank_composite",
}

var productsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "product_id", Type: arrow.BinaryTypes.String},
	{Name: "revenue", Type: lake.MoneyType},
	{Name: "sale_count", Type: arrow.PrimitiveTypes.Int64},
	{Name: "price_mean", Type: lake.MoneyType},
	{Name: "price_min", Type: lake.MoneyType},
	{Name: "price_max", Type: lake.MoneyType},
	{Name: "revenue_per_sale", Type: lake.MoneyType},
	{Name: "grade_mean", Type: arrow.PrimitiveTypes.Float64},
	{Name: "review_count", Type: arrow.PrimitiveTypes.Int64},
	{Name: "grade_min", Type: arrow.PrimitiveTypes.Int64},
	{Name: "grade_max", Type: arrow.PrimitiveTypes.Int64},
	{Name: "grade_stddev", Type: arrow.PrimitiveTypes.Float64},
	{Name: "first_sale_date", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
	{Name: "last_sale_date", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
	{Name: "active_days", Type: arrow.PrimitiveTypes.Int64},
	{Name: "sales_per_day", Type: arrow.PrimitiveTypes.Float64},
	{Name: "response_rate", Type: arrow.PrimitiveTypes.Float64},
	{Name: "normalized_revenue", Type: arrow.PrimitiveTypes.Float64},
	{Name: "normalized_grade", Type: arrow.PrimitiveTypes.Float64},
	{Name: "composite_score", Type: arrow.PrimitiveTypes.Float64},
	{Name: "rank_revenue", Type: arrow.PrimitiveTypes.Int64},
	{Name: "rank_grade", Type: arrow.PrimitiveTypes.Int64},
	{Name: "rank_composite", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// productsRecord builds the gold table. The caller releases it.
func productsRecord(rows []model.ProductPerformance) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, productsSchema)
	defer b.Release()

	str := func(i int) *array.StringBuilder { return b.Field(i).(*array.StringBuilder) }
	f64 := func(i int) *array.Float64Builder { return b.Field(i).(*array.Float64Builder) }
	i64 := func(i int) *array.Int64Builder { return b.Field(i).(*array.Int64Builder) }
	money := func(i int, d decimal.Decimal) { b.Field(i).(*array.Decimal128Builder).Append(lake.ToMoney(d)) }
	date := func(i int, t *time.Time) {
		db := b.Field(i).(*array.Date32Builder)
		if t == nil {
			db.AppendNull()
			return
		}
		db.Append(arrow.Date32FromTime(*t))
	}

	for _, p := range rows {
		str(0).Append(p.ProductID)
		money(1, p.Revenue)
		i64(2).Append(int64(p.SaleCount))
		money(3, p.PriceMean)
		money(4, p.PriceMin)
		money(5, p.PriceMax)
		money(6, p.RevenuePerSale)
		f64(7).Append(p.GradeMean)
		i64(8).Append(int64(p.ReviewCount))
		i64(9).Append(int64(p.GradeMin))
		i64(10).Append(int64(p.GradeMax))
		f64(11).Append(p.GradeStddev)
		date(12, p.FirstSaleDate)
		date(13, p.LastSaleDate)
		i64(14).Append(int64(p.ActiveDays))
		f64(15).Append(p.SalesPerDay)
		f64(16).Append(p.ResponseRate)
		f64(17).Append(p.NormalizedRevenue)
		f64(18).Append(p.NormalizedGrade)
		f64(19).Append(p.CompositeScore)
		i64(20).Append(int64(p.RankRevenue))
		i64(21).Append(int64(p.RankGrade))
		i64(22).Append(int64(p.RankComposite))
	}

	return b.NewRecord()
}

// ReadProducts reads a gold table. Presence flags are restored from the
// sale and review counts.
func ReadProducts(ctx context.Context, path string) ([]model.ProductPerformance, error) {
	var rows []model.ProductPerformance
	err := lake.ReadParquet(ctx, path, func(rec arrow.Record) error {
		cols := make(map[string]arrow.Array, len(Columns))
		for i, name := range Columns {
			col, err := lake.Column(rec, name)
			if err != nil {
				return err
			}
			if want := productsSchema.Field(i).Type; !arrow.TypeEqual(col.DataType(), want) {
				return eris.Errorf("gold: column %q has type %s, want %s", name, col.DataType(), want)
			}
			cols[name] = col
		}
		f64 := func(name string, i int) float64 { return cols[name].(*array.Float64).Value(i) }
		money := func(name string, i int) decimal.Decimal { return lake.FromMoney(cols[name].(*array.Decimal128).Value(i)) }
		i64 := func(name string, i int) int { return int(cols[name].(*array.Int64).Value(i)) }
		date := func(name string, i int) *time.Time {
			a := cols[name].(*array.Date32)
			if a.IsNull(i) {
				return nil
			}
			t := a.Value(i).ToTime()
			return &t
		}
		ids := cols["product_id"].(*array.String)

		for i := 0; i < int(rec.NumRows()); i++ {
			p := model.ProductPerformance{
				ProductID:         ids.Value(i),
				Revenue:           money("revenue", i),
				SaleCount:         i64("sale_count", i),
				PriceMean:         money("price_mean", i),
				PriceMin:          money("price_min", i),
				PriceMax:          money("price_max", i),
				RevenuePerSale:    money("revenue_per_sale", i),
				GradeMean:         f64("grade_mean", i),
				ReviewCount:       i64("review_count", i),
				GradeMin:          i64("grade_min", i),
				GradeMax:          i64("grade_max", i),
				GradeStddev:       f64("grade_stddev", i),
				FirstSaleDate:     date("first_sale_date", i),
				LastSaleDate:      date("last_sale_date", i),
				ActiveDays:        i64("active_days", i),
				SalesPerDay:       f64("sales_per_day", i),
				ResponseRate:      f64("response_rate", i),
				NormalizedRevenue: f64("normalized_revenue", i),
				NormalizedGrade:   f64("normalized_grade", i),
				CompositeScore:    f64("composite_score", i),
				RankRevenue:       i64("rank_revenue", i),
				RankGrade:         i64("rank_grade", i),
				RankComposite:     i64("rank_composite", i),
			}
			p.HasSales = p.SaleCount > 0
			p.HasReviews = p.ReviewCount > 0
			rows = append(rows, p)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "gold: read products")
	}
	return rows, nil
}

// productsCSV renders the gold table as text rows in Columns order.
func productsCSV(rows []model.ProductPerformance) [][]string {
	records := make([][]string, len(rows))
	for i, p := range rows {
		records[i] = []string{
			p.ProductID,
			p.Revenue.String(),
			strconv.Itoa(p.SaleCount),
			p.PriceMean.String(),
			p.PriceMin.String(),
			p.PriceMax.String(),
			p.RevenuePerSale.String(),
			formatFloat(p.GradeMean),
			strconv.Itoa(p.ReviewCount),
			strconv.Itoa(p.GradeMin),
			strconv.Itoa(p.GradeMax),
			formatFloat(p.GradeStddev),
			formatDate(p.FirstSaleDate),
			formatDate(p.LastSaleDate),
			strconv.Itoa(p.ActiveDays),
			formatFloat(p.SalesPerDay),
			formatFloat(p.ResponseRate),
			formatFloat(p.NormalizedRevenue),
			formatFloat(p.NormalizedGrade),
			formatFloat(p.CompositeScore),
			strconv.Itoa(p.RankRevenue),
			strconv.Itoa(p.RankGrade),
			strconv.Itoa(p.RankComposite),
		}
	}
	return records
}

// ReadStats reads a global roll-up.
func ReadStats(path string) (model.GlobalStats, error) {
	var s model.GlobalStats
	if err := lake.ReadJSON(path, &s); err != nil {
		return s, eris.Wrap(err, "gold: read stats")
	}
	return s, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
