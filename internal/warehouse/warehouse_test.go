package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/medallion-cli/internal/gold"
	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
)

func newMockPublisher(t *testing.T) (*Publisher, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	p := New(mock, "")
	p.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return p, mock
}

func sampleRows() []model.ProductPerformance {
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.ProductPerformance{
		{
			ProductID: "1001", Revenue: decimal.RequireFromString("30.5"), SaleCount: 2,
			PriceMean: decimal.RequireFromString("15.25"), FirstSaleDate: &first, LastSaleDate: &first,
			ActiveDays: 1, RankRevenue: 1, RankGrade: 2, RankComposite: 1,
		},
		{ProductID: "1002", GradeMean: 4, ReviewCount: 1, GradeMin: 4, GradeMax: 4, RankRevenue: 2, RankGrade: 1, RankComposite: 2},
	}
}

func anyStatsArgs() []any {
	args := make([]any, len(statsColumns))
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func expectPublish(mock pgxmock.PgxPoolIface, products int64) {
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "gold"."product_performance"`).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	if products > 0 {
		mock.ExpectCopyFrom(pgx.Identifier{"gold", "product_performance"}, gold.Columns).WillReturnResult(products)
	}
	mock.ExpectExec(`INSERT INTO "gold"."global_stats" .* VALUES \(\$1, .*\$8\) ON CONFLICT \("run_id"\) DO UPDATE`).
		WithArgs(anyStatsArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
}

func TestMigrate(t *testing.T) {
	p, mock := newMockPublisher(t)

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "gold"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, p.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublish_Success(t *testing.T) {
	p, mock := newMockPublisher(t)
	expectPublish(mock, 2)

	res, err := p.Publish(context.Background(), "run-1", sampleRows(), model.GlobalStats{ProductCount: 2, TotalSales: 2})
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, int64(2), res.Products)
	assert.Equal(t, int64(1), res.Stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublish_EmptyGold(t *testing.T) {
	p, mock := newMockPublisher(t)
	expectPublish(mock, 0)

	res, err := p.Publish(context.Background(), "run-2", nil, model.GlobalStats{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublish_StatsRowArgs(t *testing.T) {
	p, mock := newMockPublisher(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO "gold"."global_stats"`).
		WithArgs("run-3", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), 121.5, int64(4), 3.5, int64(2), int64(1), int64(2)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	stats := model.GlobalStats{
		TotalRevenue: 121.5, TotalSales: 4, MeanGrade: 3.5,
		TotalReviews: 2, ActiveProducts: 1, ProductCount: 2,
	}
	res, err := p.Publish(context.Background(), "run-3", nil, stats)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublish_StatsFailureRollsBack(t *testing.T) {
	p, mock := newMockPublisher(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO "gold"."global_stats"`).
		WithArgs(anyStatsArgs()...).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := p.Publish(context.Background(), "run-1", nil, model.GlobalStats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warehouse: upsert stats")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublish_CopyFailureRollsBack(t *testing.T) {
	p, mock := newMockPublisher(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"gold", "product_performance"}, gold.Columns).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := p.Publish(context.Background(), "run-1", sampleRows(), model.GlobalStats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy products")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublish_RequiresRunID(t *testing.T) {
	p, _ := newMockPublisher(t)

	_, err := p.Publish(context.Background(), "", nil, model.GlobalStats{})
	require.Error(t, err)
}

func TestPublishLake_MissingGold(t *testing.T) {
	p, _ := newMockPublisher(t)
	l := lake.New(t.TempDir(), "", "", "")

	_, err := p.PublishLake(context.Background(), l, "run-1")
	require.Error(t, err)
}

func TestProductRows(t *testing.T) {
	rows := productRows(sampleRows())
	require.Len(t, rows, 2)
	require.Len(t, rows[0], len(gold.Columns))

	assert.Equal(t, "1001", rows[0][0])
	assert.InDelta(t, 30.5, rows[0][1], 1e-9)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), rows[0][12])
	assert.Nil(t, rows[1][12])
	assert.Nil(t, rows[1][13])
	assert.Equal(t, int64(1), rows[1][21])
}
