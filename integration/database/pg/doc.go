// Package pg provides pgx connection pool initialization with retry logic,
// health checking, and goose-based schema migrations.
package pg
