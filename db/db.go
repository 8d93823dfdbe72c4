// Package db ships the SQL migrations inside the binaries.
package db

import "embed"

// Migrations holds db/migrations/*.sql for golang-migrate's iofs source.
//
//go:embed migrations/*.sql
var Migrations embed.FS
