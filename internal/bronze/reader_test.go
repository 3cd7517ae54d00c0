package bronze

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
)

func newTestLake(t *testing.T) *lake.Lake {
	t.Helper()
	l := lake.New(t.TempDir(), "bronze", "silver", "gold")
	require.NoError(t, l.Ensure())
	return l
}

func writeBronze(t *testing.T, l *lake.Lake, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(l.Path(lake.Bronze, name), []byte(content), 0o644))
}

func writeBronzeXLSX(t *testing.T, l *lake.Lake, name string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(l.Path(lake.Bronze, name)))
}

func TestReader_Read_BothSchemas(t *testing.T) {
	l := newTestLake(t)
	writeBronze(t, l, "sales_data_01-01-2025.csv",
		"product_id,price,date,client\n1001, 12.5, 01-01-2025, Alice Martin\n1002, 3, 01-01-2025, Bob\n")
	writeBronze(t, l, "sales_data_01-02-2025.csv",
		"id_produit;prix;date;client\n")
	writeBronze(t, l, "sales_data_01-03-2025.csv",
		"client,date,prix,id_produit\nChloé,02/01/2025,9.99,2001\n")
	writeBronze(t, l, "review_data_01-01-2025.json",
		`[{"grade": 4, "comment": "Robust toolset", "product_id": 1001}]`)
	writeBronze(t, l, "review_data_01-02-2025.json",
		`[{"note": "5", "commentaire": "Très bien", "id_produit": "2001"}, {"note": 2, "id_produit": 1001.0}]`)

	batch, err := NewReader(l, nil).Read(context.Background())
	require.Error(t, err, "semicolon header matches no mapping")
	assert.True(t, eris.Is(err, ErrUnknownSchema))
	assert.Nil(t, batch)

	require.NoError(t, os.Remove(l.Path(lake.Bronze, "sales_data_01-02-2025.csv")))

	batch, err = NewReader(l, nil).Read(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Sales, 2)
	require.Len(t, batch.Reviews, 2)

	assert.Equal(t, "positional", batch.Sales[0].Schema)
	assert.Equal(t, []model.RawSale{
		{ProductID: "1001", Price: "12.5", Date: "01-01-2025", Client: "Alice Martin"},
		{ProductID: "1002", Price: "3", Date: "01-01-2025", Client: "Bob"},
	}, batch.Sales[0].Rows)

	assert.Equal(t, "named", batch.Sales[1].Schema)
	assert.Equal(t, []string{"02/01/2006", "02-01-2006", "2006-01-02"}, batch.Sales[1].DateLayouts)
	assert.Equal(t, []model.RawSale{
		{ProductID: "2001", Price: "9.99", Date: "02/01/2025", Client: "Chloé"},
	}, batch.Sales[1].Rows)

	assert.Equal(t, "english", batch.Reviews[0].Schema)
	assert.Equal(t, []model.RawReview{
		{Grade: "4", Comment: "Robust toolset", ProductID: "1001"},
	}, batch.Reviews[0].Rows)

	assert.Equal(t, "french", batch.Reviews[1].Schema)
	assert.Equal(t, []model.RawReview{
		{Grade: "5", Comment: "Très bien", ProductID: "2001"},
		{Grade: "2", Comment: "", ProductID: "1001.0"},
	}, batch.Reviews[1].Rows)

	assert.Equal(t, 3, batch.SaleRows())
	assert.Equal(t, 3, batch.ReviewRows())
}

func TestReader_Read_XLSX(t *testing.T) {
	l := newTestLake(t)
	writeBronzeXLSX(t, l, "sales_data_01-01-2025.xlsx", [][]string{
		{"id_produit", "prix", "date", "client"},
		{"3001", "45.1", "15/01/2025", "Hugo"},
		{"", "", "", ""},
	})
	writeBronze(t, l, "review_data_01-01-2025.json", `[]`)

	batch, err := NewReader(l, nil).Read(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Sales, 1)
	assert.Equal(t, "named", batch.Sales[0].Schema)
	assert.Equal(t, []model.RawSale{
		{ProductID: "3001", Price: "45.1", Date: "15/01/2025", Client: "Hugo"},
	}, batch.Sales[0].Rows)
	require.Len(t, batch.Reviews, 1)
	assert.Empty(t, batch.Reviews[0].Rows)
}

func TestReader_Read_NoSalesFiles(t *testing.T) {
	l := newTestLake(t)
	writeBronze(t, l, "review_data_01-01-2025.json", `[{"grade": 4, "product_id": 1}]`)

	_, err := NewReader(l, nil).Read(context.Background())
	require.Error(t, err)

	var noInput *NoInputFilesError
	require.ErrorAs(t, err, &noInput)
	assert.Equal(t, KindSales, noInput.Kind)
	assert.Equal(t, l.Dir(lake.Bronze), noInput.Dir)
	assert.Contains(t, err.Error(), "no sales input files")
}

func TestReader_Read_NoReviewFiles(t *testing.T) {
	l := newTestLake(t)
	writeBronze(t, l, "sales_data_01-01-2025.csv", "product_id,price,date,client\n")

	_, err := NewReader(l, nil).Read(context.Background())
	var noInput *NoInputFilesError
	require.ErrorAs(t, err, &noInput)
	assert.Equal(t, KindReviews, noInput.Kind)
}

func TestReader_Read_IgnoresUnrelatedFiles(t *testing.T) {
	l := newTestLake(t)
	writeBronze(t, l, "notes.txt", "hello")
	writeBronze(t, l, "sales.csv", "product_id,price,date,client\n1,1,01-01-2025,a\n")

	_, err := NewReader(l, nil).ReadSales(context.Background())
	var noInput *NoInputFilesError
	require.ErrorAs(t, err, &noInput)
}

func TestReader_ReadReviews_UnknownKeys(t *testing.T) {
	l := newTestLake(t)
	writeBronze(t, l, "review_data_01-01-2025.json", `[{"stars": 4, "sku": 1}]`)

	_, err := NewReader(l, nil).ReadReviews(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownSchema))
	assert.Contains(t, err.Error(), "review_data_01-01-2025.json")
}

func TestReader_ReadReviews_Legacy(t *testing.T) {
	l := newTestLake(t)
	writeBronze(t, l, "review_data_01-01-2025.json",
		`[{"note": 3, "id_prod": 4001}, {"Note": "5", "ID Prod": "4002"}]`)

	files, err := NewReader(l, nil).ReadReviews(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "legacy", files[0].Schema)
	assert.Equal(t, []model.RawReview{
		{Grade: "3", ProductID: "4001"},
		{Grade: "5", ProductID: "4002"},
	}, files[0].Rows)
}

func TestReader_ReadReviews_IncompleteFirstRecord(t *testing.T) {
	l := newTestLake(t)
	writeBronze(t, l, "review_data_01-01-2025.json", `[
		{"grade": 4, "comment": "no id"},
		{"grade": 5, "comment": "Great", "product_id": 1001},
		{"grade": 3, "comment": "Fine", "product_id": 1001}
	]`)

	files, err := NewReader(l, nil).ReadReviews(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "english", files[0].Schema)
	assert.Equal(t, []model.RawReview{
		{Grade: "4", Comment: "no id", ProductID: ""},
		{Grade: "5", Comment: "Great", ProductID: "1001"},
		{Grade: "3", Comment: "Fine", ProductID: "1001"},
	}, files[0].Rows)
}

func TestRecordKeys(t *testing.T) {
	keys := recordKeys([]map[string]any{
		{"grade": 1, "comment": "x"},
		{"product_id": 2, "grade": 3},
	})
	assert.Equal(t, []string{"comment", "grade", "product_id"}, keys)
}

func TestReader_ReadReviews_Malformed(t *testing.T) {
	l := newTestLake(t)
	writeBronze(t, l, "review_data_01-01-2025.json", `[{"grade": 4,`)

	_, err := NewReader(l, nil).ReadReviews(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bronze: parse review_data_01-01-2025.json")
}

func TestReader_CustomMappings(t *testing.T) {
	l := newTestLake(t)
	m, err := ParseMappings([]byte(`
sales:
  - name: pipe
    columns: {product_id: sku, price: amount, date: day, client: buyer}
reviews:
  - name: stars
    columns: {grade: stars, product_id: sku}
    optional: [comment]
`))
	require.NoError(t, err)
	writeBronze(t, l, "sales_data_x.csv", "sku,amount,day,buyer\nA1,5,2025-01-01,z\n")
	writeBronze(t, l, "review_data_x.json", `[{"stars": 3, "sku": "A1"}]`)

	batch, err := NewReader(l, m).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pipe", batch.Sales[0].Schema)
	assert.Equal(t, "A1", batch.Sales[0].Rows[0].ProductID)
	assert.Equal(t, "3", batch.Reviews[0].Rows[0].Grade)
}

func TestScalarString(t *testing.T) {
	assert.Equal(t, "", scalarString(nil))
	assert.Equal(t, "x", scalarString(" x "))
	assert.Equal(t, "4.0", scalarString(json.Number("4.0")))
	assert.Equal(t, "2.5", scalarString(2.5))
	assert.Equal(t, "true", scalarString(true))
	assert.Equal(t, "", scalarString(map[string]any{"a": 1}))
	assert.Equal(t, "", scalarString([]any{1}))
}

func TestBatchRows_Empty(t *testing.T) {
	b := &Batch{Sales: []SaleFile{{Path: filepath.Join("x", "y")}}}
	assert.Zero(t, b.SaleRows())
	assert.Zero(t, b.ReviewRows())
}
