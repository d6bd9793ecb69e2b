package postgres

import "embed"

// MigrationsDir is the directory within Migrations that holds the goose files.
const MigrationsDir = "migrations"

// Migrations holds the goose SQL migrations for the schema these stores use.
//
//go:embed migrations/*.sql
var Migrations embed.FS
