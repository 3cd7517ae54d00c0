package gold

import (
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
)

// Result is the output of one aggregation run.
type Result struct {
	Products []model.ProductPerformance
	Stats    model.GlobalStats
	Join     *JoinReport
}

// Build aggregates, derives and rolls up conformed rows.
func Build(sales []model.Sale, reviews []model.Review) *Result {
	log := zap.L().With(zap.String("component", "gold"))

	rows, join := Aggregate(sales, reviews)
	Derive(rows)
	stats := Stats(rows)

	for _, d := range join.Degenerate {
		log.Debug("degenerate statistic", zap.Error(d))
	}
	log.Info("aggregation complete",
		zap.Int("products", len(rows)),
		zap.Int("both", join.Both),
		zap.Int("sales_only", join.SalesOnly),
		zap.Int("reviews_only", join.ReviewsOnly),
		zap.Int("degenerate", len(join.Degenerate)),
	)
	return &Result{Products: rows, Stats: stats, Join: join}
}

// Write replaces the gold artifacts and returns the written paths. All
// three are encoded before any is moved into place, so a failure leaves
// the previous set untouched.
func Write(l *lake.Lake, res *Result) ([]string, error) {
	paths := []string{
		l.Path(lake.Gold, lake.PerformanceTable),
		l.Path(lake.Gold, lake.PerformanceCSV),
		l.Path(lake.Gold, lake.StatsFile),
	}

	rec := productsRecord(res.Products)
	defer rec.Release()

	var st lake.Staging
	defer st.Discard()
	if err := st.Add(paths[0], func(w io.Writer) error { return lake.EncodeParquet(w, rec) }); err != nil {
		return nil, eris.Wrap(err, "gold: write products")
	}
	if err := st.Add(paths[1], func(w io.Writer) error { return lake.EncodeCSV(w, Columns, productsCSV(res.Products)) }); err != nil {
		return nil, eris.Wrap(err, "gold: write products csv")
	}
	if err := st.Add(paths[2], func(w io.Writer) error { return lake.EncodeJSON(w, res.Stats) }); err != nil {
		return nil, eris.Wrap(err, "gold: write stats")
	}
	if err := st.Commit(); err != nil {
		return nil, eris.Wrap(err, "gold: publish artifacts")
	}
	return paths, nil
}
