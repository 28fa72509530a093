// Package migrations embeds the goose migration scripts for the managed
// remote store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
