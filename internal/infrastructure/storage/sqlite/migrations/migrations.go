// Package migrations содержит SQL-схему хранилища шарда.
package migrations

import "embed"

// FS - встроенные файлы миграций.
//
//go:embed *.sql
var FS embed.FS
