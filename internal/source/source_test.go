package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"csvprofiler/internal/profile"
)

// collect reads every row of src, copying values since sources reuse them.
func collect(t *testing.T, src profile.RowSource) (cols []string, rows [][]string, err error) {
	t.Helper()
	ctx := context.Background()

	cols, err = src.Columns(ctx)
	if err != nil {
		return nil, nil, err
	}
	for {
		row, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return cols, rows, nil
		}
		if err != nil {
			return cols, rows, err
		}
		rows = append(rows, append([]string(nil), row.Values...))
	}
}

func newCSV(t *testing.T, input string, opt CSVOptions) *CSV {
	t.Helper()
	c, err := NewCSV("test.csv", io.NopCloser(strings.NewReader(input)), opt)
	require.NoError(t, err)
	return c
}

func newJSON(input string, opt JSONOptions) *JSON {
	return NewJSON("test.json", io.NopCloser(strings.NewReader(input)), opt)
}
