// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Tests using it are built with the integration tag and skip themselves
// unless DATABASE_URL or ATELIER_TEST_DB_URL is set. The schema is created
// from the migrations embedded in the postgres package, and each test runs
// inside a transaction that is rolled back afterwards.
package testdb
