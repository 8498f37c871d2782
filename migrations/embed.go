// Package migrations embeds the SQL migrations shipped with tablekit.
//
// Each driver has its own directory (sqlite3, mysql, postgres) of
// YYYYMMDD_HHMMSS_name.up.sql / .down.sql pairs, because generated-key
// column types differ between engines. Files hold one statement each so
// they run on MySQL without multiStatements.
package migrations

import "embed"

// FS holds every driver directory.
//
//go:embed sqlite3/*.sql mysql/*.sql postgres/*.sql
var FS embed.FS
