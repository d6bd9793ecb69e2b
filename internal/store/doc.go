// Package store defines the persistence ports of the generation pipeline:
// tasks, detail templates and prompt configuration. Implementations live in
// internal/platform/postgres.
package store
