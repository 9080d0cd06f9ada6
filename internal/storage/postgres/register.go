package postgres

import "csvprofiler/internal/storage"

func init() {
	// registers the profile history backend factory
	storage.Register("postgres", New)
}
