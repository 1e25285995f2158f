// Package migrations embeds the SQL schema files so tools and tests
// can apply them without a checkout-relative path.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
