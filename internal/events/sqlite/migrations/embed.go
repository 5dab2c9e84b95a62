package migrations

import "embed"

// FS contains embedded SQLite migrations for the webhook event journal.
//
//go:embed *.sql
var FS embed.FS
