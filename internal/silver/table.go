package silver

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
)

var (
	salesSchema = arrow.NewSchema([]arrow.Field{
		{Name: "product_id", Type: arrow.BinaryTypes.String},
		{Name: "price", Type: lake.MoneyType},
		{Name: "sale_date", Type: arrow.FixedWidthTypes.Date32},
		{Name: "client_id", Type: arrow.BinaryTypes.String},
	}, nil)

	reviewsSchema = arrow.NewSchema([]arrow.Field{
		{Name: "product_id", Type: arrow.BinaryTypes.String},
		{Name: "grade", Type: arrow.PrimitiveTypes.Int32},
	}, nil)
)

// Write replaces the silver tables with res and returns the written paths.
func Write(l *lake.Lake, res *Result) ([]string, error) {
	salesPath := l.Path(lake.Silver, lake.SalesTable)
	if err := WriteSales(salesPath, res.Sales); err != nil {
		return nil, err
	}
	reviewsPath := l.Path(lake.Silver, lake.ReviewsTable)
	if err := WriteReviews(reviewsPath, res.Reviews); err != nil {
		return nil, err
	}
	zap.L().Debug("silver tables written",
		zap.String("component", "silver.table"),
		zap.String("sales", salesPath),
		zap.String("reviews", reviewsPath),
	)
	return []string{salesPath, reviewsPath}, nil
}

// Load reads both silver tables.
func Load(ctx context.Context, l *lake.Lake) ([]model.Sale, []model.Review, error) {
	sales, err := ReadSales(ctx, l.Path(lake.Silver, lake.SalesTable))
	if err != nil {
		return nil, nil, err
	}
	reviews, err := ReadReviews(ctx, l.Path(lake.Silver, lake.ReviewsTable))
	if err != nil {
		return nil, nil, err
	}
	return sales, reviews, nil
}

// WriteSales writes conformed sales as parquet.
func WriteSales(path string, sales []model.Sale) error {
	b := array.NewRecordBuilder(memory.DefaultAllocator, salesSchema)
	defer b.Release()

	ids := b.Field(0).(*array.StringBuilder)
	prices := b.Field(1).(*array.Decimal128Builder)
	dates := b.Field(2).(*array.Date32Builder)
	clients := b.Field(3).(*array.StringBuilder)
	for _, s := range sales {
		ids.Append(s.ProductID)
		prices.Append(lake.ToMoney(s.Price))
		dates.Append(arrow.Date32FromTime(s.SaleDate))
		clients.Append(s.ClientID)
	}

	rec := b.NewRecord()
	defer rec.Release()
	return eris.Wrap(lake.WriteParquet(path, rec), "silver: write sales")
}

// ReadSales reads a conformed sales table.
func ReadSales(ctx context.Context, path string) ([]model.Sale, error) {
	var sales []model.Sale
	err := lake.ReadParquet(ctx, path, func(rec arrow.Record) error {
		cols, err := columns(rec, "product_id", "price", "sale_date", "client_id")
		if err != nil {
			return err
		}
		ids, ok1 := cols[0].(*array.String)
		prices, ok2 := cols[1].(*array.Decimal128)
		dates, ok3 := cols[2].(*array.Date32)
		clients, ok4 := cols[3].(*array.String)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return eris.New("silver: unexpected sales column types")
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			sales = append(sales, model.Sale{
				ProductID: ids.Value(i),
				Price:     lake.FromMoney(prices.Value(i)),
				SaleDate:  dates.Value(i).ToTime(),
				ClientID:  clients.Value(i),
			})
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "silver: read sales")
	}
	return sales, nil
}

// WriteReviews writes conformed reviews as parquet.
func WriteReviews(path string, reviews []model.Review) error {
	b := array.NewRecordBuilder(memory.DefaultAllocator, reviewsSchema)
	defer b.Release()

	ids := b.Field(0).(*array.StringBuilder)
	grades := b.Field(1).(*array.Int32Builder)
	for _, r := range reviews {
		ids.Append(r.ProductID)
		grades.Append(int32(r.Grade))
	}

	rec := b.NewRecord()
	defer rec.Release()
	return eris.Wrap(lake.WriteParquet(path, rec), "silver: write reviews")
}

// ReadReviews reads a conformed reviews table.
func ReadReviews(ctx context.Context, path string) ([]model.Review, error) {
	var reviews []model.Review
	err := lake.ReadParquet(ctx, path, func(rec arrow.Record) error {
		cols, err := columns(rec, "product_id", "grade")
		if err != nil {
			return err
		}
		ids, ok1 := cols[0].(*array.String)
		grades, ok2 := cols[1].(*array.Int32)
		if !ok1 || !ok2 {
			return eris.New("silver: unexpected reviews column types")
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			reviews = append(reviews, model.Review{
				ProductID: ids.Value(i),
				Grade:     int(grades.Value(i)),
			})
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "silver: read reviews")
	}
	return reviews, nil
}

func columns(rec arrow.Record, names ...string) ([]arrow.Array, error) {
	out := make([]arrow.Array, len(names))
	for i, name := range names {
		col, err := lake.Column(rec, name)
		if err != nil {
			return nil, err
		}
		out[i] = col
	}
	return out, nil
}
