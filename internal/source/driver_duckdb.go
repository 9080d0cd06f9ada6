//go:build cgo

package source

import _ "github.com/marcboeker/go-duckdb"
