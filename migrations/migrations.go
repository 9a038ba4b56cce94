// Package migrations embeds the Postgres schema for the snapshot source.
package migrations

import "embed"

// FS holds the numbered *.sql migration files.
//
//go:embed *.sql
var FS embed.FS
