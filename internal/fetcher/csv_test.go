package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV_Basic(t *testing.T) {
	input := "a,b,c\n1,2,3\n4,5,6\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
	assert.Equal(t, []string{"4", "5", "6"}, rows[2])
}

func TestStreamCSV_HeaderChannel(t *testing.T) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("x, y\n1, 2\n"), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, <-headerCh)
	assert.Equal(t, [][]string{{"1", "2"}}, rows)
}

func TestStreamCSV_StopsOnErrorByDefault(t *testing.T) {
	input := "a,b\n\"bad\"x,1\n3,4\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Len(t, rows, 1)
}

func TestStreamCSV_ContinueOnError(t *testing.T) {
	input := "a,b\n\"bad\"x,1\n3,4\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{ContinueOnError: true})
	rows, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"3", "4"}}, rows)
	assert.Len(t, AsParseErrors(err), 1)
}

func TestStreamCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a\n1\n"), CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	assert.Error(t, err)
}

func TestAsParseErrors(t *testing.T) {
	assert.Nil(t, AsParseErrors(nil))
	plain := assert.AnError
	assert.Equal(t, []error{plain}, AsParseErrors(plain))
}
