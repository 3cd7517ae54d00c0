// Package bronze reads raw sale and review drops and generates synthetic
// ones.
package bronze

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
)

// File name patterns of the raw layer.
const (
	SalesCSVPattern   = "sales_data_*.csv"
	SalesXLSXPattern  = "sales_data_*.xlsx"
	ReviewJSONPattern = "review_data_*.json"
)

// SaleFile is the content of one raw sales file.
type SaleFile struct {
	Path        string
	Schema      string
	DateLayouts []string
	Rows        []model.RawSale
}

// ReviewFile is the content of one raw review file.
type ReviewFile struct {
	Path   string
	Schema string
	Rows   []model.RawReview
}

// Batch is everything read from the raw layer in one run.
type Batch struct {
	Sales   []SaleFile
	Reviews []ReviewFile
}

// SaleRows returns the number of sale rows across all files.
func (b *Batch) SaleRows() int {
	n := 0
	for _, f := range b.Sales {
		n += len(f.Rows)
	}
	return n
}

// ReviewRows returns the number of review rows across all files.
func (b *Batch) ReviewRows() int {
	n := 0
	for _, f := range b.Reviews {
		n += len(f.Rows)
	}
	return n
}

// Reader parses the raw layer of a lake.
type Reader struct {
	lake     *lake.Lake
	mappings *Mappings
}

// NewReader creates a Reader. A nil mappings uses DefaultMappings.
func NewReader(l *lake.Lake, mappings *Mappings) *Reader {
	if mappings == nil {
		mappings = DefaultMappings()
	}
	return &Reader{lake: l, mappings: mappings}
}

// Read parses every raw sales and review file. Both categories are required.
func (r *Reader) Read(ctx context.Context) (*Batch, error) {
	sales, err := r.ReadSales(ctx)
	if err != nil {
		return nil, err
	}
	reviews, err := r.ReadReviews(ctx)
	if err != nil {
		return nil, err
	}
	return &Batch{Sales: sales, Reviews: reviews}, nil
}

// ReadSales parses every raw sales file (delimited text or xlsx).
func (r *Reader) ReadSales(ctx context.Context) ([]SaleFile, error) {
	log := zap.L().With(zap.String("component", "bronze.reader"))

	csvPaths, err := r.lake.Glob(lake.Bronze, SalesCSVPattern)
	if err != nil {
		return nil, err
	}
	xlsxPaths, err := r.lake.Glob(lake.Bronze, SalesXLSXPattern)
	if err != nil {
		return nil, err
	}
	if len(csvPaths)+len(xlsxPaths) == 0 {
		return nil, &NoInputFilesError{Kind: KindSales, Dir: r.lake.Dir(lake.Bronze)}
	}

	files := make([]SaleFile, 0, len(csvPaths)+len(xlsxPaths))
	for _, path := range csvPaths {
		table, err := readCSVFile(ctx, path)
		if err != nil {
			return nil, err
		}
		sf, err := r.saleFile(path, table)
		if err != nil {
			return nil, err
		}
		files = append(files, sf)
	}
	for _, path := range xlsxPaths {
		table, err := ReadXLSX(path, XLSXOptions{TrimSpace: true})
		if err != nil {
			return nil, eris.Wrapf(err, "bronze: read %s", filepath.Base(path))
		}
		sf, err := r.saleFile(path, table)
		if err != nil {
			return nil, err
		}
		files = append(files, sf)
	}

	for _, f := range files {
		log.Debug("sales file read",
			zap.String("file", filepath.Base(f.Path)),
			zap.String("schema", f.Schema),
			zap.Int("rows", len(f.Rows)),
		)
	}
	return files, nil
}

func readCSVFile(ctx context.Context, path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "bronze: open %s", filepath.Base(path))
	}
	defer f.Close() //nolint:errcheck

	var table [][]string
	err = ReadCSV(ctx, f, CSVOptions{TrimSpace: true, LazyQuotes: true}, func(row []string) error {
		table = append(table, row)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "bronze: parse %s", filepath.Base(path))
	}
	return table, nil
}

// saleFile maps a header-first table onto RawSale rows.
func (r *Reader) saleFile(path string, table [][]string) (SaleFile, error) {
	sf := SaleFile{Path: path}
	if len(table) == 0 {
		return sf, nil
	}

	m, idx, ok := Match(r.mappings.Sales, table[0])
	if !ok {
		return sf, eris.Wrapf(ErrUnknownSchema, "bronze: %s header %v", filepath.Base(path), table[0])
	}
	sf.Schema = m.Name
	sf.DateLayouts = m.DateLayouts

	sf.Rows = make([]model.RawSale, 0, len(table)-1)
	for _, row := range table[1:] {
		if blank(row) {
			continue
		}
		sf.Rows = append(sf.Rows, model.RawSale{
			ProductID: field(row, idx, ColProductID),
			Price:     field(row, idx, ColPrice),
			Date:      field(row, idx, ColDate),
			Client:    field(row, idx, ColClient),
		})
	}
	return sf, nil
}

// field returns the trimmed value of a canonical column, or "" when the
// column is unmapped or the row is short.
func field(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadReviews parses every raw review file (JSON record lists).
func (r *Reader) ReadReviews(ctx context.Context) ([]ReviewFile, error) {
	log := zap.L().With(zap.String("component", "bronze.reader"))

	paths, err := r.lake.Glob(lake.Bronze, ReviewJSONPattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &NoInputFilesError{Kind: KindReviews, Dir: r.lake.Dir(lake.Bronze)}
	}

	files := make([]ReviewFile, 0, len(paths))
	for _, path := range paths {
		rf, err := r.readReviewFile(ctx, path)
		if err != nil {
			return nil, err
		}
		log.Debug("review file read",
			zap.String("file", filepath.Base(path)),
			zap.String("schema", rf.Schema),
			zap.Int("rows", len(rf.Rows)),
		)
		files = append(files, rf)
	}
	return files, nil
}

func (r *Reader) readReviewFile(ctx context.Context, path string) (ReviewFile, error) {
	rf := ReviewFile{Path: path}

	f, err := os.Open(path)
	if err != nil {
		return rf, eris.Wrapf(err, "bronze: open %s", filepath.Base(path))
	}
	defer f.Close() //nolint:errcheck

	var records []map[string]any
	err = DecodeJSONArray(ctx, f, func(rec map[string]any) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return rf, eris.Wrapf(err, "bronze: parse %s", filepath.Base(path))
	}
	if len(records) == 0 {
		return rf, nil
	}

	// The schema is detected from the union of keys across records, so a
	// malformed record only yields empty fields the cleaner drops.
	keys := recordKeys(records)
	m, _, ok := Match(r.mappings.Reviews, keys)
	if !ok {
		return rf, eris.Wrapf(ErrUnknownSchema, "bronze: %s keys %v", filepath.Base(path), keys)
	}
	rf.Schema = m.Name

	rf.Rows = make([]model.RawReview, 0, len(records))
	for _, rec := range records {
		norm := make(map[string]any, len(rec))
		for k, v := range rec {
			norm[NormalizeName(k)] = v
		}
		get := func(col string) string {
			src, ok := m.Columns[col]
			if !ok {
				return ""
			}
			return scalarString(norm[NormalizeName(src)])
		}
		rf.Rows = append(rf.Rows, model.RawReview{
			Grade:     get(ColGrade),
			Comment:   get(ColComment),
			ProductID: get(ColProductID),
		})
	}
	return rf, nil
}

// recordKeys returns the sorted union of keys over records.
func recordKeys(records []map[string]any) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// scalarString renders a decoded JSON scalar as trimmed text. Null and
// composite values become "".
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
