// Package migrations embeds the goose migrations for every supported
// database. Each dialect has its own directory because the identity and
// type syntax differ.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
