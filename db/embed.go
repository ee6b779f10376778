// Package db embeds the SQL migration files.
package db

import _ "embed"

// Schema holds the DDL for every table the engine uses. Applied
// idempotently on startup by RunMigrations.
//
//go:embed migrations/001_schema.sql
var Schema string
