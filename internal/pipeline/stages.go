package pipeline

import (
	"context"

	"github.com/sells-group/medallion-cli/internal/bronze"
	"github.com/sells-group/medallion-cli/internal/dashboard"
	"github.com/sells-group/medallion-cli/internal/gold"
	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
	"github.com/sells-group/medallion-cli/internal/silver"
)

func (p *Pipeline) ingest(ctx context.Context, generate bool, result *Result) (*model.PhaseResult, error) {
	meta := map[string]any{}
	if generate {
		gen, err := bronze.NewGenerator(p.lake, p.cfg.Generate).Generate(ctx)
		if err != nil {
			return nil, err
		}
		result.Generated = gen
		meta["generated_sales_files"] = len(gen.SalesFiles)
		meta["generated_review_files"] = len(gen.ReviewFiles)
		meta["seed"] = gen.Seed
	}

	batch, err := bronze.NewReader(p.lake, p.mappings).Read(ctx)
	if err != nil {
		return &model.PhaseResult{Metadata: meta}, err
	}
	result.Batch = batch

	meta["sales_files"] = len(batch.Sales)
	meta["review_files"] = len(batch.Reviews)
	meta["sales_rows"] = batch.SaleRows()
	meta["review_rows"] = batch.ReviewRows()
	return &model.PhaseResult{Metadata: meta}, nil
}

func (p *Pipeline) transform(ctx context.Context, result *Result) (*model.PhaseResult, error) {
	batch := result.Batch
	if batch == nil {
		b, err := bronze.NewReader(p.lake, p.mappings).Read(ctx)
		if err != nil {
			return nil, err
		}
		batch = b
		result.Batch = b
	}

	res, err := silver.Clean(ctx, batch)
	if err != nil {
		return nil, err
	}
	paths, err := silver.Write(p.lake, res)
	if err != nil {
		return nil, err
	}
	result.Silver = res

	r := res.Report
	return &model.PhaseResult{Metadata: map[string]any{
		"sales_read":              r.SalesRead,
		"sales_file_duplicates":   r.SalesFileDuplicates,
		"sales_cross_duplicates":  r.SalesCrossDuplicates,
		"sales_kept":              r.SalesKept,
		"reviews_read":            r.ReviewsRead,
		"review_file_duplicates":  r.ReviewFileDuplicates,
		"review_cross_duplicates": r.ReviewCrossDuplicates,
		"reviews_kept":            r.ReviewsKept,
		"dropped":                 r.Dropped,
		"outputs":                 paths,
	}}, nil
}

func (p *Pipeline) aggregate(ctx context.Context, result *Result) (*model.PhaseResult, error) {
	var sales []model.Sale
	var reviews []model.Review
	if result.Silver != nil {
		sales, reviews = result.Silver.Sales, result.Silver.Reviews
	} else {
		s, r, err := silver.Load(ctx, p.lake)
		if err != nil {
			return nil, err
		}
		sales, reviews = s, r
	}

	res := gold.Build(sales, reviews)
	paths, err := gold.Write(p.lake, res)
	if err != nil {
		return nil, err
	}
	result.Gold = res

	return &model.PhaseResult{Metadata: map[string]any{
		"products":     len(res.Products),
		"both":         res.Join.Both,
		"sales_only":   res.Join.SalesOnly,
		"reviews_only": res.Join.ReviewsOnly,
		"degenerate":   len(res.Join.Degenerate),
		"outputs":      paths,
	}}, nil
}

func (p *Pipeline) visualize(ctx context.Context, result *Result) (*model.PhaseResult, error) {
	if !p.cfg.Dashboard.Enabled {
		return &model.PhaseResult{Status: model.PhaseStatusSkipped}, nil
	}

	var summary *dashboard.Summary
	var err error
	if result.Gold != nil {
		summary, err = p.renderer.RenderFile(p.lake.Path(lake.Gold, lake.DashboardFile), result.Gold.Products)
	} else {
		summary, err = p.renderer.RenderLake(ctx, p.lake)
	}
	if err != nil {
		return nil, err
	}
	result.Dashboard = summary

	return &model.PhaseResult{Metadata: map[string]any{
		"basis":               summary.Basis,
		"correlation":         summary.Correlation,
		"correlation_defined": summary.Defined,
		"interpretation":      summary.Interpretation,
		"reviewed_products":   summary.Reviewed,
		"output":              summary.Path,
	}}, nil
}
