package migrations

import "embed"

// FS contains embedded SQLite migrations for the exercise service.
//
//go:embed *.sql
var FS embed.FS
