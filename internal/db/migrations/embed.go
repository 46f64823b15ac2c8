// Package migrations holds the goose migrations of the vmapd database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
