// Package migrations embeds the goose SQL migrations for the photo catalog.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
