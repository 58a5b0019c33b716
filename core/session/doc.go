// Package session manages visitor session lifecycle: creation on first
// contact, activity counters, idle expiry, explicit ends, and the per-user
// concurrent session cap.
//
// A Session tracks one browser's continuous interaction with the chatbot.
// The Manager owns all lifecycle transitions; the Store interface abstracts
// persistence so the middleware and tests can run against memory while
// production uses Postgres (storage/postgres).
package session
