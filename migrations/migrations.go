// Package migrations содержит встраиваемые SQL-миграции схемы БД.
// Применяются через goose при старте сервера.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
