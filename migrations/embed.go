// Package migrations bundles the SQL schema so the binary can migrate
// without the source tree.
package migrations

import "embed"

// FS holds every NNN_name.sql file of this directory
//
//go:embed *.sql
var FS embed.FS
