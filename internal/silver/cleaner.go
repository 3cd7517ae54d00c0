// Package silver conforms raw sales and reviews into deduplicated, typed
// tables.
package silver

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/bronze"
	"github.com/sells-group/medallion-cli/internal/model"
)

// Report counts what happened to raw rows during cleaning.
type Report struct {
	SalesRead             int            `json:"sales_read"`
	SalesFileDuplicates   int            `json:"sales_file_duplicates"`
	SalesCrossDuplicates  int            `json:"sales_cross_duplicates"`
	SalesKept             int            `json:"sales_kept"`
	ReviewsRead           int            `json:"reviews_read"`
	ReviewFileDuplicates  int            `json:"review_file_duplicates"`
	ReviewCrossDuplicates int            `json:"review_cross_duplicates"`
	ReviewsKept           int            `json:"reviews_kept"`
	Dropped               map[string]int `json:"dropped"`
}

// DroppedTotal returns the number of rows dropped for parse failures.
func (r *Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

func (r *Report) drop(kind string, err error) {
	var pe *ParseError
	key := kind
	if errors.As(err, &pe) {
		key = kind + "." + pe.Field
	}
	r.Dropped[key]++
}

// Result is the conformed output of one cleaning pass.
type Result struct {
	Sales   []model.Sale
	Reviews []model.Review
	Report  Report
}

// Clean conforms every file of the batch. Per-row failures are dropped and
// counted; Clean itself only fails when ctx is done.
func Clean(ctx context.Context, batch *bronze.Batch) (*Result, error) {
	log := zap.L().With(zap.String("component", "silver.cleaner"))
	res := &Result{Report: Report{Dropped: map[string]int{}}}

	seenSales := make(map[string]struct{})
	for _, f := range batch.Sales {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "silver: clean sales")
		}
		res.Report.SalesRead += len(f.Rows)

		seenRows := make(map[model.RawSale]struct{}, len(f.Rows))
		for _, raw := range f.Rows {
			if _, dup := seenRows[raw]; dup {
				res.Report.SalesFileDuplicates++
				continue
			}
			seenRows[raw] = struct{}{}

			sale, err := CleanSale(raw, f.DateLayouts)
			if err != nil {
				res.Report.drop("sales", err)
				log.Debug("sale row dropped",
					zap.String("file", filepath.Base(f.Path)),
					zap.Error(err),
				)
				continue
			}
			key := sale.Key()
			if _, dup := seenSales[key]; dup {
				res.Report.SalesCrossDuplicates++
				continue
			}
			seenSales[key] = struct{}{}
			res.Sales = append(res.Sales, sale)
		}
	}

	seenReviews := make(map[model.Review]struct{})
	for _, f := range batch.Reviews {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "silver: clean reviews")
		}
		res.Report.ReviewsRead += len(f.Rows)

		seenRows := make(map[model.RawReview]struct{}, len(f.Rows))
		for _, raw := range f.Rows {
			if _, dup := seenRows[raw]; dup {
				res.Report.ReviewFileDuplicates++
				continue
			}
			seenRows[raw] = struct{}{}

			review, err := CleanReview(raw)
			if err != nil {
				res.Report.drop("reviews", err)
				log.Debug("review row dropped",
					zap.String("file", filepath.Base(f.Path)),
					zap.Error(err),
				)
				continue
			}
			if _, dup := seenReviews[review]; dup {
				res.Report.ReviewCrossDuplicates++
				continue
			}
			seenReviews[review] = struct{}{}
			res.Reviews = append(res.Reviews, review)
		}
	}

	res.Report.SalesKept = len(res.Sales)
	res.Report.ReviewsKept = len(res.Reviews)

	log.Info("cleaning complete",
		zap.Int("sales_read", res.Report.SalesRead),
		zap.Int("sales_kept", res.Report.SalesKept),
		zap.Int("reviews_read", res.Report.ReviewsRead),
		zap.Int("reviews_kept", res.Report.ReviewsKept),
		zap.Int("dropped", res.Report.DroppedTotal()),
	)
	return res, nil
}
