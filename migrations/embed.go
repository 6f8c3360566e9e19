// Package migrations встраивает SQL-миграции сервисов в бинарник.
package migrations

import "embed"

// Notes содержит миграции сервиса заметок в каталоге "notes".
//
//go:embed notes/*.sql
var Notes embed.FS

// NotesDir - каталог миграций сервиса заметок внутри Notes.
const NotesDir = "notes"
