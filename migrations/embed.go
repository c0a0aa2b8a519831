// Package migrations embeds the journal schema so the binary can migrate without
// a migrations directory next to it.
package migrations

import "embed"

// FS holds the golang-migrate *.sql files.
//
//go:embed *.sql
var FS embed.FS
