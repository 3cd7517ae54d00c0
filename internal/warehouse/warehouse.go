// Package warehouse publishes the gold layer into Postgres so downstream BI
// tools can query it without reading parquet.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/db"
	"github.com/sells-group/medallion-cli/internal/gold"
	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
)

const (
	productsTable = "product_performance"
	statsTable    = "global_stats"
)

var statsColumns = []string{
	"run_id", "published_at",
	"total_revenue", "total_sales", "mean_grade", "total_reviews",
	"active_products", "product_count",
}

// Publisher writes gold rows into one Postgres schema.
type Publisher struct {
	pool   db.Pool
	schema string
	now    func() time.Time
}

// PublishResult reports what one Publish call wrote.
type PublishResult struct {
	RunID    string `json:"run_id"`
	Products int64  `json:"products"`
	Stats    int64  `json:"stats"`
}

// New creates a Publisher. An empty schema means "gold".
func New(pool db.Pool, schema string) *Publisher {
	if schema == "" {
		schema = "gold"
	}
	return &Publisher{pool: pool, schema: schema, now: time.Now}
}

// Migrate creates the schema and both tables if missing.
func (p *Publisher) Migrate(ctx context.Context) error {
	schema := pgx.Identifier{p.schema}.Sanitize()
	products := db.Table(p.schema, productsTable).Sanitize()
	stats := db.Table(p.schema, statsTable).Sanitize()

	ddl := fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[2]s (
	product_id         TEXT PRIMARY KEY,
	revenue            DOUBLE PRECISION NOT NULL,
	sale_count         BIGINT NOT NULL,
	price_mean         DOUBLE PRECISION NOT NULL,
	price_min          DOUBLE PRECISION NOT NULL,
	price_max          DOUBLE PRECISION NOT NULL,
	revenue_per_sale   DOUBLE PRECISION NOT NULL,
	grade_mean         DOUBLE PRECISION NOT NULL,
	review_count       BIGINT NOT NULL,
	grade_min          BIGINT NOT NULL,
	grade_max          BIGINT NOT NULL,
	grade_stddev       DOUBLE PRECISION NOT NULL,
	first_sale_date    DATE,
	last_sale_date     DATE,
	active_days        BIGINT NOT NULL,
	sales_per_day      DOUBLE PRECISION NOT NULL,
	response_rate      DOUBLE PRECISION NOT NULL,
	normalized_revenue DOUBLE PRECISION NOT NULL,
	normalized_grade   DOUBLE PRECISION NOT NULL,
	composite_score    DOUBLE PRECISION NOT NULL,
	rank_revenue       BIGINT NOT NULL,
	rank_grade         BIGINT NOT NULL,
	rank_composite     BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS %[3]s (
	run_id          TEXT PRIMARY KEY,
	published_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	total_revenue   DOUBLE PRECISION NOT NULL,
	total_sales     BIGINT NOT NULL,
	mean_grade      DOUBLE PRECISION NOT NULL,
	total_reviews   BIGINT NOT NULL,
	active_products BIGINT NOT NULL,
	product_count   BIGINT NOT NULL
);
`, schema, products, stats)

	_, err := p.pool.Exec(ctx, ddl)
	return eris.Wrap(err, "warehouse: migrate")
}

// Publish replaces the product table with rows and upserts the stats row
// keyed by runID, all in one transaction.
func (p *Publisher) Publish(ctx context.Context, runID string, rows []model.ProductPerformance, stats model.GlobalStats) (*PublishResult, error) {
	if runID == "" {
		return nil, eris.New("warehouse: run id is required")
	}
	log := zap.L().With(zap.String("component", "warehouse"), zap.String("run_id", runID))

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	products := db.Table(p.schema, productsTable)
	if _, err := tx.Exec(ctx, "DELETE FROM "+products.Sanitize()); err != nil {
		return nil, eris.Wrapf(err, "warehouse: clear %s", productsTable)
	}

	n, err := db.CopyFrom(ctx, tx, products, gold.Columns, productRows(rows))
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: copy products")
	}

	upserted, err := db.UpsertRow(ctx, tx, db.Table(p.schema, statsTable), []string{"run_id"}, statsColumns, db.Row{
		"run_id":          runID,
		"published_at":    p.now().UTC(),
		"total_revenue":   stats.TotalRevenue,
		"total_sales":     int64(stats.TotalSales),
		"mean_grade":      stats.MeanGrade,
		"total_reviews":   int64(stats.TotalReviews),
		"active_products": int64(stats.ActiveProducts),
		"product_count":   int64(stats.ProductCount),
	})
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: upsert stats")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "warehouse: commit tx")
	}

	log.Info("gold published", zap.Int64("products", n), zap.Int64("stats", upserted))
	return &PublishResult{RunID: runID, Products: n, Stats: upserted}, nil
}

// PublishLake reads the gold artifacts of l and publishes them.
func (p *Publisher) PublishLake(ctx context.Context, l *lake.Lake, runID string) (*PublishResult, error) {
	rows, err := gold.ReadProducts(ctx, l.Path(lake.Gold, lake.PerformanceTable))
	if err != nil {
		return nil, err
	}
	stats, err := gold.ReadStats(l.Path(lake.Gold, lake.StatsFile))
	if err != nil {
		return nil, err
	}
	return p.Publish(ctx, runID, rows, stats)
}

func productRows(rows []model.ProductPerformance) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.ProductID,
			r.Revenue.InexactFloat64(), int64(r.SaleCount),
			r.PriceMean.InexactFloat64(), r.PriceMin.InexactFloat64(), r.PriceMax.InexactFloat64(),
			r.RevenuePerSale.InexactFloat64(),
			r.GradeMean, int64(r.ReviewCount), int64(r.GradeMin), int64(r.GradeMax), r.GradeStddev,
			dateValue(r.FirstSaleDate), dateValue(r.LastSaleDate),
			int64(r.ActiveDays), r.SalesPerDay,
			r.ResponseRate, r.NormalizedRevenue, r.NormalizedGrade, r.CompositeScore,
			int64(r.RankRevenue), int64(r.RankGrade), int64(r.RankComposite),
		}
	}
	return out
}

func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
