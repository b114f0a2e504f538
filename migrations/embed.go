// Package migrations embeds the SQL schema applied by the gorm migrator.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
