package migrations

import "embed"

// FS - SQL миграции в порядке имен файлов
//
//go:embed *.sql
var FS embed.FS
