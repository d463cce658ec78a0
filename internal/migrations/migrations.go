// Package migrations embeds the SQL migrations of the local store.
// Files follow goose naming; the goose version is the schema version.
// Migrations are additive only: they never drop or rewrite existing data.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
