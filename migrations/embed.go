// Package migrations embeds the SQL schema so cmd/migrate works without the
// source tree next to the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
