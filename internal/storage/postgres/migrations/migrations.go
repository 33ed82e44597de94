// Package migrations embeds the PostgreSQL schema migrations run by goose
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
