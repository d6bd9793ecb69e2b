// Package postgres provides PostgreSQL implementations of the storage
// interfaces defined in internal/store: generation tasks, detail templates
// and prompt configuration. It also embeds the goose migrations that create
// their schema.
//
// Every store accepts a store.DBTX, so it can run against a *sql.DB or
// inside a transaction obtained through WithTx.
package postgres
