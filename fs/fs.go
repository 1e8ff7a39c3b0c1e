// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

// FS holds the SQL migrations, the e-mail templates, the UI catalogs and the password assets.
//
//go:embed migrations/*.sql all:templates i18n/*.yaml assets/common-passwords.txt.gz
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
	CatalogsDir       = "i18n"
	CommonPasswords   = "assets/common-passwords.txt.gz"
)
