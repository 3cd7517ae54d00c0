// Package dashboard renders the gold table as a static PNG dashboard.
package dashboard

import (
	"cmp"
	"context"
	"io"
	"math"
	"slices"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/medallion-cli/internal/config"
	"github.com/sells-group/medallion-cli/internal/gold"
	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
)

const (
	width  = 1600
	height = 1200
	margin = 80.0

	defaultTopN = 20
)

// Grade band colours.
const (
	colorGood    = "#2ecc71"
	colorAverage = "#f39c12"
	colorPoor    = "#e74c3c"
	colorPanel   = "#fafafa"
	colorGrid    = "#dddddd"
	colorText    = "#222222"
	colorBox     = "#f5deb3"
)

type rect struct{ x, y, w, h float64 }

// Renderer draws dashboards.
type Renderer struct {
	topN    int
	title   font.Face
	label   font.Face
	small   font.Face
	printer *message.Printer
}

// New creates a Renderer with the embedded Go fonts.
func New(cfg config.DashboardConfig) (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: parse regular font")
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: parse bold font")
	}
	face := func(f *truetype.Font, size float64) font.Face {
		return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
	}

	topN := cfg.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	return &Renderer{
		topN:    topN,
		title:   face(bold, 26),
		label:   face(bold, 16),
		small:   face(regular, 13),
		printer: message.NewPrinter(language.English),
	}, nil
}

// RenderLake reads the gold table of l and writes the dashboard next to it.
func (r *Renderer) RenderLake(ctx context.Context, l *lake.Lake) (*Summary, error) {
	rows, err := gold.ReadProducts(ctx, l.Path(lake.Gold, lake.PerformanceTable))
	if err != nil {
		return nil, err
	}
	return r.RenderFile(l.Path(lake.Gold, lake.DashboardFile), rows)
}

// RenderFile renders rows to a PNG at path.
func (r *Renderer) RenderFile(path string, rows []model.ProductPerformance) (*Summary, error) {
	var s Summary
	err := lake.WriteAtomic(path, func(w io.Writer) error {
		var err error
		s, err = r.Render(w, rows)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: write png")
	}
	s.Path = path

	zap.L().Info("dashboard rendered",
		zap.String("component", "dashboard"),
		zap.String("path", path),
		zap.String("basis", s.Basis),
		zap.Float64("correlation", s.Correlation),
		zap.Bool("correlation_defined", s.Defined),
	)
	return &s, nil
}

// Render draws the dashboard for rows as PNG into w.
func (r *Renderer) Render(w io.Writer, rows []model.ProductPerformance) (Summary, error) {
	s := Summarize(rows)

	dc := gg.NewContext(width, height)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	dc.SetFontFace(r.title)
	dc.SetHexColor(colorText)
	dc.DrawStringAnchored("Dashboard: sales volume vs average grade", width/2, 40, 0.5, 0.5)

	top := rect{margin, 80, width - 2*margin, 460}
	left := rect{margin, 660, width/2 - 1.5*margin, 480}
	right := rect{width/2 + 0.5*margin, 660, width/2 - 1.5*margin, 480}

	r.drawScatter(dc, top, rows, s)
	r.drawRevenueBars(dc, left, rows)
	r.drawGradeBars(dc, right, rows)

	if err := dc.EncodePNG(w); err != nil {
		return s, eris.Wrap(err, "dashboard: encode png")
	}
	return s, nil
}

func (r *Renderer) panel(dc *gg.Context, area rect, title string) {
	dc.SetHexColor(colorPanel)
	dc.DrawRectangle(area.x, area.y, area.w, area.h)
	dc.Fill()
	dc.SetHexColor(colorGrid)
	dc.SetLineWidth(1)
	dc.DrawRectangle(area.x, area.y, area.w, area.h)
	dc.Stroke()

	dc.SetFontFace(r.label)
	dc.SetHexColor(colorText)
	dc.DrawStringAnchored(title, area.x+area.w/2, area.y-18, 0.5, 0.5)
}

func (r *Renderer) drawScatter(dc *gg.Context, area rect, rows []model.ProductPerformance, s Summary) {
	reviewed := withReviews(rows)
	plot := reviewed
	if len(plot) == 0 {
		plot = rows
	}
	xs, ys, basis := axes(plot)

	title := "Sales volume vs average grade"
	xLabel := "Sales volume (units)"
	if basis == BasisRevenue {
		title = "Revenue vs average grade"
		xLabel = "Revenue"
	}
	r.panel(dc, area, title)

	xmin, xmax := bounds(xs)
	if xmax == xmin {
		xmin, xmax = xmin-1, xmax+1
	}
	pad := (xmax - xmin) * 0.05
	xmin, xmax = xmin-pad, xmax+pad
	const ymin, ymax = 0.0, 5.5

	px := func(x float64) float64 { return area.x + (x-xmin)/(xmax-xmin)*area.w }
	py := func(y float64) float64 { return area.y + area.h - (y-ymin)/(ymax-ymin)*area.h }

	dc.SetFontFace(r.small)
	for g := 0; g <= 5; g++ {
		y := py(float64(g))
		dc.SetHexColor(colorGrid)
		dc.DrawLine(area.x, y, area.x+area.w, y)
		dc.Stroke()
		dc.SetHexColor(colorText)
		dc.DrawStringAnchored(r.printer.Sprintf("%d", g), area.x-10, y, 1, 0.5)
	}
	for i := 0; i <= 4; i++ {
		x := xmin + (xmax-xmin)*float64(i)/4
		dc.DrawStringAnchored(r.printer.Sprintf("%.0f", x), px(x), area.y+area.h+14, 0.5, 0.5)
	}
	dc.SetFontFace(r.label)
	dc.DrawStringAnchored(xLabel, area.x+area.w/2, area.y+area.h+40, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), area.x-45, area.y+area.h/2)
	dc.DrawStringAnchored("Average grade (out of 5)", area.x-45, area.y+area.h/2, 0.5, 0.5)
	dc.Pop()

	maxRevenue := 0.0
	for _, p := range plot {
		maxRevenue = max(maxRevenue, p.Revenue.InexactFloat64())
	}

	if slope, icpt, ok := LinearFit(xs, ys); ok && len(plot) > 2 {
		lo, hi := bounds(xs)
		dc.SetRGBA(0.9, 0.1, 0.1, 0.6)
		dc.SetLineWidth(2)
		dc.SetDash(10, 6)
		dc.DrawLine(px(lo), py(slope*lo+icpt), px(hi), py(slope*hi+icpt))
		dc.Stroke()
		dc.SetDash()
	}

	dc.SetFontFace(r.small)
	for i, p := range plot {
		radius := 7.0
		if maxRevenue > 0 {
			radius = 5 + 12*math.Sqrt(p.Revenue.InexactFloat64()/maxRevenue)
		}
		dc.DrawCircle(px(xs[i]), py(ys[i]), radius)
		dc.SetHexColor(gradeColor(p.GradeMean))
		dc.FillPreserve()
		dc.SetHexColor(colorText)
		dc.SetLineWidth(1.5)
		dc.Stroke()
		if len(reviewed) <= r.topN {
			dc.DrawString(p.ProductID, px(xs[i])+radius+2, py(ys[i])-radius)
		}
	}

	box := r.printer.Sprintf("Correlation: %.3f\nProducts with reviews: %d/%d", s.Correlation, s.Reviewed, s.Products)
	if !s.Defined {
		box = r.printer.Sprintf("Correlation: n/a\nProducts with reviews: %d/%d", s.Reviewed, s.Products)
	}
	dc.SetHexColor(colorBox)
	dc.DrawRoundedRectangle(area.x+10, area.y+10, 260, 52, 6)
	dc.Fill()
	dc.SetHexColor(colorText)
	dc.DrawStringWrapped(box, area.x+20, area.y+18, 0, 0, 240, 1.4, gg.AlignLeft)
}

func (r *Renderer) drawRevenueBars(dc *gg.Context, area rect, rows []model.ProductPerformance) {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b model.ProductPerformance) int { return b.Revenue.Cmp(a.Revenue) })
	title := "Revenue by product"
	if len(sorted) > r.topN {
		sorted = sorted[:r.topN]
		title += r.printer.Sprintf(" (top %d)", r.topN)
	}
	r.panel(dc, area, title)

	maxValue := 0.0
	for _, p := range sorted {
		maxValue = max(maxValue, p.Revenue.InexactFloat64())
	}
	r.drawBars(dc, area, sorted, maxValue,
		func(p model.ProductPerformance) float64 { return p.Revenue.InexactFloat64() },
		func(i int, _ model.ProductPerformance) {
			shade := 0.35 + 0.5*float64(len(sorted)-i)/float64(len(sorted))
			dc.SetRGB(0.1, 0.3*shade+0.2, shade)
		},
		func(v float64) string { return r.printer.Sprintf("%.0f €", v) },
	)
}

func (r *Renderer) drawGradeBars(dc *gg.Context, area rect, rows []model.ProductPerformance) {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b model.ProductPerformance) int { return cmp.Compare(b.GradeMean, a.GradeMean) })
	title := "Average grade by product"
	if len(sorted) > r.topN {
		sorted = sorted[:r.topN]
		title += r.printer.Sprintf(" (top %d)", r.topN)
	}
	r.panel(dc, area, title)

	r.drawBars(dc, area, sorted, 5.5,
		func(p model.ProductPerformance) float64 { return p.GradeMean },
		func(_ int, p model.ProductPerformance) { dc.SetHexColor(gradeColor(p.GradeMean)) },
		func(v float64) string { return r.printer.Sprintf("%.1f/5", v) },
	)
}

// drawBars draws one horizontal bar per row, largest first from the top.
func (r *Renderer) drawBars(
	dc *gg.Context,
	area rect,
	rows []model.ProductPerformance,
	maxValue float64,
	value func(model.ProductPerformance) float64,
	fill func(i int, p model.ProductPerformance),
	format func(float64) string,
) {
	if len(rows) == 0 {
		dc.SetFontFace(r.small)
		dc.SetHexColor(colorText)
		dc.DrawStringAnchored("no data", area.x+area.w/2, area.y+area.h/2, 0.5, 0.5)
		return
	}
	const labelWidth = 70.0
	slot := area.h / float64(len(rows))
	barH := slot * 0.7
	inner := area.w - labelWidth - 80

	dc.SetFontFace(r.small)
	for i, p := range rows {
		y := area.y + float64(i)*slot + (slot-barH)/2
		v := value(p)
		w := 0.0
		if maxValue > 0 {
			w = v / maxValue * inner
		}
		fill(i, p)
		dc.DrawRectangle(area.x+labelWidth, y, w, barH)
		dc.Fill()

		dc.SetHexColor(colorText)
		dc.DrawStringAnchored(p.ProductID, area.x+labelWidth-6, y+barH/2, 1, 0.5)
		if len(rows) <= 15 {
			dc.DrawStringAnchored(format(v), area.x+labelWidth+w+6, y+barH/2, 0, 0.5)
		}
	}
}

func gradeColor(g float64) string {
	switch {
	case g >= 4:
		return colorGood
	case g < 3:
		return colorPoor
	default:
		return colorAverage
	}
}

func bounds(xs []float64) (lo, hi float64) {
	if len(xs) == 0 {
		return 0, 1
	}
	return slices.Min(xs), slices.Max(xs)
}
