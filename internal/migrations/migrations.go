// Package migrations embebe los archivos SQL de goose que definen el
// esquema de la aplicación.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
