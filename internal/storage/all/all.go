// Package all registers every profile history backend.
package all

import (
	_ "csvprofiler/internal/storage/mssql"
	_ "csvprofiler/internal/storage/postgres"
	_ "csvprofiler/internal/storage/sqlite"
)
