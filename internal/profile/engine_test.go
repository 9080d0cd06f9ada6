package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// sliceSource serves fixed rows. failAt > 0 makes Next fail on that row.
type sliceSource struct {
	cols    []string
	rows    [][]string
	colsErr error
	failAt  int

	i int
}

func (s *sliceSource) Name() string { return "memory" }

func (s *sliceSource) Columns(context.Context) ([]string, error) {
	return s.cols, s.colsErr
}

func (s *sliceSource) Next(ctx context.Context) (Row, error) {
	if s.failAt > 0 && s.i+1 == s.failAt {
		return Row{}, errors.New("disk on fire")
	}
	if s.i >= len(s.rows) {
		return Row{}, io.EOF
	}
	s.i++
	return Row{Values: s.rows[s.i-1], Line: s.i + 1}, nil
}

// column builds a one-column source from vals.
func column(vals ...string) *sliceSource {
	rows := make([][]string, len(vals))
	for i, v := range vals {
		rows[i] = []string{v}
	}
	return &sliceSource{cols: []string{"c"}, rows: rows}
}

func profileColumn(t *testing.T, vals ...string) ColumnProfile {
	t.Helper()
	sum, err := Run(context.Background(), column(vals...), Options{})
	require.NoError(t, err)
	require.Len(t, sum.Columns, 1)
	return sum.Columns[0]
}

func TestProfileIntegerColumn(t *testing.T) {
	t.Parallel()

	c := profileColumn(t, "1", "2", "3")
	assert.Equal(t, TypeInteger, c.Type)
	assert.Equal(t, 1.0, *c.Min)
	assert.Equal(t, 3.0, *c.Max)
	assert.Equal(t, 2.0, *c.Mean)
	assert.Equal(t, 2.0, *c.Median)
	assert.InDelta(t, 1.0, *c.StdDev, 1e-12)
	assert.Equal(t, CardinalityUnique, c.Cardinality)
}

func TestProfileMixedColumnUsesNumericSubset(t *testing.T) {
	t.Parallel()

	c := profileColumn(t, "1", "2.5", "x")
	assert.Equal(t, TypeMixed, c.Type)
	require.True(t, c.HasNumericStats())
	assert.Equal(t, 1.0, *c.Min)
	assert.Equal(t, 2.5, *c.Max)
	assert.Equal(t, 1.75, *c.Mean)
	assert.Equal(t, map[string]int{"integer": 1, "float": 1, "string": 1}, c.KindCounts)
}

func TestProfileNumericColumn(t *testing.T) {
	t.Parallel()

	c := profileColumn(t, "1", "2.5")
	assert.Equal(t, TypeNumeric, c.Type)
	assert.Equal(t, 1.75, *c.Median)
}

func TestProfileAllNullColumn(t *testing.T) {
	t.Parallel()

	c := profileColumn(t, "", "  ", "")
	assert.Equal(t, TypeNull, c.Type)
	assert.Equal(t, 100.0, c.NullPercentage)
	assert.Equal(t, 3, c.NullCount)
	assert.Equal(t, 0, c.DistinctValues)
	assert.Equal(t, 3, c.DuplicateRows)
	assert.False(t, c.HasNumericStats())
	assert.Nil(t, c.StdDev)
	assert.Empty(t, c.MostFrequent)
	assert.Equal(t, Cardinality(""), c.Cardinality)
}

func TestProfileSingleNumericValue(t *testing.T) {
	t.Parallel()

	c := profileColumn(t, "4.5", "")
	require.NotNil(t, c.StdDev)
	assert.Equal(t, 0.0, *c.StdDev)
	assert.Equal(t, 50.0, c.NullPercentage)
}

func TestProfileNullPercentageRounding(t *testing.T) {
	t.Parallel()

	c := profileColumn(t, "", "a", "b")
	assert.Equal(t, 33.33, c.NullPercentage)
}

func TestProfileTopFiveTieBreak(t *testing.T) {
	t.Parallel()

	c := profileColumn(t, "a", "a", "b", "b", "c")
	assert.Equal(t, []ValueCount{{"a", 2}, {"b", 2}, {"c", 1}}, c.MostFrequent)
	assert.Equal(t, 3, c.DistinctValues)
	assert.Equal(t, 2, c.DuplicateRows)
}

func TestProfileHeaderOnly(t *testing.T) {
	t.Parallel()

	sum, err := Run(context.Background(), &sliceSource{cols: []string{"a", "b"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.TotalRows)
	assert.Equal(t, 2, sum.TotalColumns)
	for _, c := range sum.Columns {
		assert.Equal(t, TypeUnknown, c.Type)
		assert.Equal(t, 0, c.TotalRows)
		assert.Equal(t, 0.0, c.NullPercentage)
		assert.Equal(t, 0, c.DuplicateRows)
		assert.Empty(t, c.MostFrequent)
		assert.False(t, c.HasNumericStats())
	}
}

func TestProfileShortRowsAreAbsent(t *testing.T) {
	t.Parallel()

	src := &sliceSource{
		cols: []string{"a", "b"},
		rows: [][]string{{"1", "x"}, {"2"}},
	}
	sum, err := Run(context.Background(), src, Options{})
	require.NoError(t, err)

	b, ok := sum.Column("b")
	require.True(t, ok)
	assert.Equal(t, 2, b.TotalRows)
	assert.Equal(t, 1, b.NullCount)
}

func TestProfileDuplicateRecords(t *testing.T) {
	t.Parallel()

	src := &sliceSource{
		cols: []string{"a", "b"},
		rows: [][]string{{"1", "x"}, {"1", "x "}, {"1", "y"}, {"1", ""}, {"1"}},
	}
	sum, err := Run(context.Background(), src, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.DuplicateRecords)
}

func TestProfilePIIFlags(t *testing.T) {
	t.Parallel()

	src := &sliceSource{
		cols: []string{"first_name", "contact", "amount"},
		rows: [][]string{
			{"Ann", "ann@example.com", "10"},
			{"Bob", "", "12"},
		},
	}
	sum, err := Run(context.Background(), src, Options{DetectPII: true})
	require.NoError(t, err)
	assert.Equal(t, map[string][]PIIFlag{
		"first_name": {PIIPossibleName},
		"contact":    {PIIEmail},
	}, sum.PIIFlags)

	sum, err = Run(context.Background(), &sliceSource{cols: src.cols, rows: src.rows}, Options{})
	require.NoError(t, err)
	assert.Empty(t, sum.PIIFlags)
}

func TestProfileErrors(t *testing.T) {
	t.Parallel()

	t.Run("no columns", func(t *testing.T) {
		t.Parallel()
		_, err := Run(context.Background(), &sliceSource{}, Options{})
		assert.ErrorIs(t, err, ErrNotTabular)
	})

	t.Run("columns fail", func(t *testing.T) {
		t.Parallel()
		_, err := Run(context.Background(), &sliceSource{colsErr: errors.New("boom")}, Options{})
		assert.ErrorIs(t, err, ErrSourceUnreadable)
	})

	t.Run("columns already classified", func(t *testing.T) {
		t.Parallel()
		src := &sliceSource{colsErr: fmt.Errorf("%w: empty file", ErrNotTabular)}
		_, err := Run(context.Background(), src, Options{})
		assert.ErrorIs(t, err, ErrNotTabular)
		assert.NotErrorIs(t, err, ErrSourceUnreadable)
	})

	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("row fails workers=%d", workers), func(t *testing.T) {
			t.Parallel()
			src := &sliceSource{cols: []string{"a", "b"}, rows: [][]string{{"1", "2"}, {"3", "4"}}, failAt: 2}
			sum, err := Run(context.Background(), src, Options{Workers: workers})
			assert.ErrorIs(t, err, ErrSourceUnreadable)
			assert.Nil(t, sum)
		})
	}
}

func TestEngineSingleUse(t *testing.T) {
	t.Parallel()

	e := New(Options{})
	assert.Equal(t, StateInitialized, e.State())

	_, err := e.Profile(context.Background(), column("1"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, e.State())

	_, err = e.Profile(context.Background(), column("1"))
	assert.ErrorIs(t, err, ErrEngineUsed)
}

func TestProfileCancelled(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 2} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		src := &sliceSource{cols: []string{"a", "b"}, rows: [][]string{{"1", "2"}}}
		sum, err := Run(ctx, src, Options{Workers: workers})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, sum)
	}
}

func TestProfileDeterministicJSON(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"1", "a", "true"},
		{"2.5", "b", "no"},
		{"", "a", "maybe"},
		{"x", "c", ""},
	}
	run := func() []byte {
		src := &sliceSource{cols: []string{"n", "s", "b"}, rows: rows}
		sum, err := Run(context.Background(), src, Options{DetectPII: true})
		require.NoError(t, err)
		b, err := json.Marshal(sum)
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, string(run()), string(run()))
}

var rowValues = []string{"", " ", "0", "1", "-3", "2.5", "1e2", "yes", "No", "abc", "a b", "NaN"}

func drawRows(t *rapid.T, width int) [][]string {
	return rapid.SliceOfN(
		rapid.SliceOfN(rapid.SampledFrom(rowValues), 0, width),
		0, 60,
	).Draw(t, "rows")
}

func TestProfileInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		width := rapid.IntRange(1, 4).Draw(t, "width")
		cols := make([]string, width)
		for i := range cols {
			cols[i] = fmt.Sprintf("c%d", i)
		}
		rows := drawRows(t, width)

		sum, err := Run(context.Background(), &sliceSource{cols: cols, rows: rows}, Options{})
		require.NoError(t, err)
		require.Equal(t, len(rows), sum.TotalRows)

		for _, c := range sum.Columns {
			kinds := 0
			for k, n := range c.KindCounts {
				if k != KindNull.String() {
					kinds += n
				}
			}
			require.Equal(t, c.TotalRows, c.NullCount+kinds, c.Name)
			require.Equal(t, c.TotalRows-c.DistinctValues, c.DuplicateRows, c.Name)
			require.LessOrEqual(t, len(c.MostFrequent), DefaultTopN)
			if c.TotalRows == 0 {
				require.Equal(t, 0.0, c.NullPercentage)
			}
			for i := 1; i < len(c.MostFrequent); i++ {
				require.GreaterOrEqual(t, c.MostFrequent[i-1].Count, c.MostFrequent[i].Count)
			}
		}
	})
}

func TestProfileParallelMatchesSerial(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		width := rapid.IntRange(2, 6).Draw(t, "width")
		workers := rapid.IntRange(2, 8).Draw(t, "workers")
		batch := rapid.IntRange(1, 7).Draw(t, "batch")
		cols := make([]string, width)
		for i := range cols {
			cols[i] = fmt.Sprintf("c%d", i)
		}
		rows := drawRows(t, width)

		serial, err := Run(context.Background(), &sliceSource{cols: cols, rows: rows}, Options{DetectPII: true})
		require.NoError(t, err)
		parallel, err := Run(context.Background(), &sliceSource{cols: cols, rows: rows},
			Options{Workers: workers, BatchSize: batch, DetectPII: true})
		require.NoError(t, err)

		if diff := cmp.Diff(serial, parallel); diff != "" {
			t.Fatalf("parallel summary differs (-serial +parallel):\n%s", diff)
		}
	})
}
