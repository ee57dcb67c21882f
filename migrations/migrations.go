// Package migrations embeds the postgres schema migrations applied by infra.MigrateUp.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
