package source

import (
	"bufio"
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvprofiler/internal/profile"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestOpen_ByExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		file string
		body string
		cols []string
	}{
		{"a.csv", "x,y\n1,2\n", []string{"x", "y"}},
		{"a.tsv", "x\ty\n1\t2\n", []string{"x", "y"}},
		{"a.json", `[{"k":1,"j":2}]`, []string{"k", "j"}},
		{"a.jsonl", "{\"k\":1}\n{\"k\":2}\n", []string{"k"}},
		{"noext", "  [{\"s\":1}]", []string{"s"}},
		{"noext2", "p;q\n1;2\n", []string{"p;q"}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			t.Parallel()
			src, err := Open(context.Background(), Spec{Location: writeFile(t, tt.file, tt.body)})
			require.NoError(t, err)
			defer src.Close()

			cols, _, err := collect(t, src)
			require.NoError(t, err)
			assert.Equal(t, tt.cols, cols)
		})
	}
}

func TestOpen_FileURL(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "d.csv", "a\n1\n")
	src, err := Open(context.Background(), Spec{Location: "file://" + p})
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, "file://"+p, src.Name())
}

func TestOpen_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Spec{Location: filepath.Join(t.TempDir(), "nope.csv")})
	assert.ErrorIs(t, err, profile.ErrSourceUnreadable)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpen_HTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("a,b\n1,2\n3,4\n"))
	}))
	defer srv.Close()

	src, err := Open(context.Background(), Spec{Location: srv.URL + "/data.csv", HTTPClient: srv.Client()})
	require.NoError(t, err)
	defer src.Close()

	sum, err := profile.Run(context.Background(), src, profile.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalRows)

	_, err = Open(context.Background(), Spec{Location: srv.URL + "/missing.csv", HTTPClient: srv.Client()})
	assert.ErrorIs(t, err, profile.ErrSourceUnreadable)
}

func TestOpen_SQLNeedsQuery(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Spec{Format: FormatSQL, Driver: "sqlite"})
	assert.ErrorIs(t, err, profile.ErrSourceUnreadable)
}

func TestOpen_ParquetOverHTTPRejected(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Spec{Location: "https://example.com/x.parquet"})
	assert.ErrorIs(t, err, profile.ErrSourceUnreadable)
}

func TestSniffFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Format
	}{
		{"{\"a\":1}", FormatJSON},
		{"\xEF\xBB\xBF\n [1]", FormatJSON},
		{"a,b\n", FormatCSV},
		{"", FormatCSV},
	}
	for _, tt := range tests {
		got := sniffFormat(bufio.NewReader(strings.NewReader(tt.in)))
		assert.Equal(t, tt.want, got, "sniffFormat(%q)", tt.in)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat(" JSONL ")
	require.NoError(t, err)
	assert.Equal(t, FormatNDJSON, f)

	f, err = ParseFormat("auto")
	require.NoError(t, err)
	assert.Equal(t, FormatAuto, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
