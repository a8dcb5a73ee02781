package migrations

import "embed"

// FS contains embedded SQLite migrations for the roll log.
//
//go:embed *.sql
var FS embed.FS
