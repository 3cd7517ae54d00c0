package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/medallion-cli/internal/config"
	"github.com/sells-group/medallion-cli/internal/gold"
	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
)

func newRenderer(t *testing.T, topN int) *Renderer {
	t.Helper()
	r, err := New(config.DashboardConfig{Enabled: true, TopN: topN})
	require.NoError(t, err)
	return r
}

func TestNew_DefaultTopN(t *testing.T) {
	assert.Equal(t, defaultTopN, newRenderer(t, 0).topN)
	assert.Equal(t, 5, newRenderer(t, 5).topN)
}

func TestRender_ProducesPNG(t *testing.T) {
	rows := []model.ProductPerformance{
		perf("1000", 3, "120.50", 4.5, 2),
		perf("1001", 1, "15", 2, 1),
		perf("1002", 2, "60", 3.5, 4),
		perf("2000", 0, "0", 5, 3),
	}

	var buf bytes.Buffer
	s, err := newRenderer(t, 20).Render(&buf, rows)
	require.NoError(t, err)
	assert.True(t, s.Defined)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, width, img.Bounds().Dx())
	assert.Equal(t, height, img.Bounds().Dy())
}

func TestRender_EmptyAndLarge(t *testing.T) {
	r := newRenderer(t, 5)

	var buf bytes.Buffer
	s, err := r.Render(&buf, nil)
	require.NoError(t, err)
	assert.False(t, s.Defined)
	assert.NotZero(t, buf.Len())

	var rows []model.ProductPerformance
	for i := range 40 {
		rows = append(rows, perf(fmt.Sprint(i), i%7, fmt.Sprint(i*3), float64(1+i%5), i%3))
	}
	buf.Reset()
	_, err = r.Render(&buf, rows)
	require.NoError(t, err)
	_, err = png.Decode(&buf)
	require.NoError(t, err)
}

func TestRenderLake(t *testing.T) {
	l := lake.New(t.TempDir(), "bronze", "silver", "gold")
	require.NoError(t, l.Ensure())

	res := &gold.Result{Products: []model.ProductPerformance{
		perf("1", 2, "20", 4, 1),
		perf("2", 1, "5", 2, 2),
	}}
	_, err := gold.Write(l, res)
	require.NoError(t, err)

	s, err := newRenderer(t, 20).RenderLake(context.Background(), l)
	require.NoError(t, err)
	assert.Equal(t, l.Path(lake.Gold, lake.DashboardFile), s.Path)

	f, err := os.Open(s.Path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	_, err = png.Decode(f)
	require.NoError(t, err)
}

func TestRenderLake_MissingGold(t *testing.T) {
	l := lake.New(t.TempDir(), "bronze", "silver", "gold")
	_, err := newRenderer(t, 20).RenderLake(context.Background(), l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gold: read products")
}

func TestGradeColor(t *testing.T) {
	assert.Equal(t, colorGood, gradeColor(4))
	assert.Equal(t, colorAverage, gradeColor(3.5))
	assert.Equal(t, colorPoor, gradeColor(2.9))
}
