package bronze

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectCSV(t *testing.T, input string, opts CSVOptions) ([][]string, error) {
	t.Helper()
	var rows [][]string
	err := ReadCSV(context.Background(), strings.NewReader(input), opts, func(row []string) error {
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

func TestReadCSV_Basic(t *testing.T) {
	rows, err := collectCSV(t, "a,b,c\n1,2,3\n4,5,6\n", CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
	assert.Equal(t, []string{"4", "5", "6"}, rows[2])
}

func TestReadCSV_PipeDelimited(t *testing.T) {
	rows, err := collectCSV(t, "a|b\n1|2\n", CSVOptions{Delimiter: '|'})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)
}

func TestReadCSV_TrimSpace(t *testing.T) {
	rows, err := collectCSV(t, "product_id,price\n1001, 12.5 \n", CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"1001", "12.5"}, rows[1])
}

func TestReadCSV_VariableFields(t *testing.T) {
	rows, err := collectCSV(t, "a,b,c\n1,2\n", CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, rows[1])
}

func TestReadCSV_Comment(t *testing.T) {
	rows, err := collectCSV(t, "# exported\na,b\n", CSVOptions{Comment: '#'})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestReadCSV_CallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadCSV(context.Background(), strings.NewReader("a\nb\nc\n"), CSVOptions{}, func([]string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadCSV_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ReadCSV(ctx, strings.NewReader("a\n"), CSVOptions{}, func([]string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestReadCSV_BadQuote(t *testing.T) {
	_, err := collectCSV(t, "a,\"b\n", CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: read row")
}
