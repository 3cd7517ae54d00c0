package bronze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"time"
	"unicode"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/config"
	"github.com/sells-group/medallion-cli/internal/lake"
)

const (
	minFiles       = 2
	maxFiles       = 15
	minRowsPerFile = 3
	maxRowsPerFile = 10
	fileDateLayout = "01-02-2006"
)

// GenerateResult describes one generated raw drop.
type GenerateResult struct {
	Removed     int      `json:"removed"`
	SalesFiles  []string `json:"sales_files"`
	ReviewFiles []string `json:"review_files"`
	Sales       int      `json:"sales"`
	Reviews     int      `json:"reviews"`
	Seed        uint64   `json:"seed"`
}

// Generator writes synthetic sales and review files into the raw layer.
type Generator struct {
	lake *lake.Lake
	cfg  config.GenerateConfig
	now  func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(l *lake.Lake, cfg config.GenerateConfig) *Generator {
	return &Generator{lake: l, cfg: cfg, now: time.Now}
}

// Generate clears the raw layer and writes a fresh drop. One sales file and
// one review file are written per day, going back from today. Every review
// references a generated product id.
func (g *Generator) Generate(ctx context.Context) (*GenerateResult, error) {
	log := zap.L().With(zap.String("component", "bronze.generator"))

	if err := g.lake.Ensure(); err != nil {
		return nil, err
	}
	removed, err := g.lake.Clear(lake.Bronze)
	if err != nil {
		return nil, err
	}

	seed := g.cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	fake := gofakeit.New(seed)

	files := g.cfg.Files
	if files <= 0 {
		files = between(rng, minFiles, maxFiles)
	}

	res := &GenerateResult{Removed: removed, Seed: seed}
	var productIDs []int

	for f := range files {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "bronze: generate")
		}
		day := g.now().AddDate(0, 0, -f)
		sales := make([]generatedSale, between(rng, minRowsPerFile, maxRowsPerFile))
		for p := range sales {
			sales[p] = generatedSale{
				ProductID: f*1000 + p,
				Price:     decimal.New(int64(between(rng, 1, 99999)), -2),
				Date:      day,
				Client:    fake.Name(),
			}
			productIDs = append(productIDs, sales[p].ProductID)
		}

		var path string
		if g.cfg.MixedSchemas && f%2 == 1 {
			path = g.lake.Path(lake.Bronze, "sales_data_"+day.Format(fileDateLayout)+".xlsx")
			err = writeNamedSalesXLSX(path, sales)
		} else {
			path = g.lake.Path(lake.Bronze, "sales_data_"+day.Format(fileDateLayout)+".csv")
			err = lake.WriteAtomic(path, func(w io.Writer) error {
				return writePositionalSales(w, sales)
			})
		}
		if err != nil {
			return nil, err
		}
		res.SalesFiles = append(res.SalesFiles, path)
		res.Sales += len(sales)
	}

	for f := range files {
		day := g.now().AddDate(0, 0, -f)
		n := between(rng, minRowsPerFile, maxRowsPerFile)
		french := g.cfg.MixedSchemas && f%2 == 1

		records := make([]any, n)
		for i := range records {
			grade := between(rng, 1, 5)
			comment := catchPhrase(fake)
			pid := productIDs[rng.IntN(len(productIDs))]
			if french {
				records[i] = frenchReview{Note: grade, Commentaire: comment, IDProduit: pid}
			} else {
				records[i] = englishReview{Grade: grade, Comment: comment, ProductID: pid}
			}
		}

		path := g.lake.Path(lake.Bronze, "review_data_"+day.Format(fileDateLayout)+".json")
		err := lake.WriteAtomic(path, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "    ")
			return enc.Encode(records)
		})
		if err != nil {
			return nil, eris.Wrapf(err, "bronze: write %s", filepath.Base(path))
		}
		res.ReviewFiles = append(res.ReviewFiles, path)
		res.Reviews += n
	}

	log.Info("raw data generated",
		zap.Int("files", files),
		zap.Int("sales", res.Sales),
		zap.Int("reviews", res.Reviews),
		zap.Int("removed", removed),
		zap.Uint64("seed", seed),
	)
	return res, nil
}

type generatedSale struct {
	ProductID int
	Price     decimal.Decimal
	Date      time.Time
	Client    string
}

type englishReview struct {
	Grade     int    `json:"grade"`
	Comment   string `json:"comment"`
	ProductID int    `json:"product_id"`
}

type frenchReview struct {
	Note        int    `json:"note"`
	Commentaire string `json:"commentaire"`
	IDProduit   int    `json:"id_produit"`
}

// writePositionalSales writes the positional variant with ", " separators,
// the way upstream exports arrive.
func writePositionalSales(w io.Writer, sales []generatedSale) error {
	if _, err := io.WriteString(w, "product_id,price,date,client\n"); err != nil {
		return err
	}
	for _, s := range sales {
		_, err := fmt.Fprintf(w, "%d, %s, %s, %s\n", s.ProductID, s.Price.String(), s.Date.Format(fileDateLayout), s.Client)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeNamedSalesXLSX(path string, sales []generatedSale) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("ventes")
	if err != nil {
		return eris.Wrap(err, "bronze: add sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"id_produit", "prix", "date", "client"} {
		header.AddCell().SetString(h)
	}
	for _, s := range sales {
		row := sheet.AddRow()
		row.AddCell().SetString(strconv.Itoa(s.ProductID))
		row.AddCell().SetString(s.Price.String())
		row.AddCell().SetString(s.Date.Format("02/01/2006"))
		row.AddCell().SetString(s.Client)
	}
	return lake.WriteAtomic(path, func(w io.Writer) error {
		return f.Write(w)
	})
}

func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

// catchPhrase returns a marketing-style review comment such as
// "Adaptive holistic toolset".
func catchPhrase(f *gofakeit.Faker) string {
	adj := []rune(f.Adjective())
	if len(adj) > 0 {
		adj[0] = unicode.ToUpper(adj[0])
	}
	return string(adj) + " " + f.BuzzWord() + " " + f.Noun()
}
