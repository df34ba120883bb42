// Package migrations embebe los archivos SQL de migración.
package migrations

import "embed"

// PostgresFS contiene las migraciones del store postgres, aplicadas en orden
// lexicográfico.
//
//go:embed *.sql
var PostgresFS embed.FS
