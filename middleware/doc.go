// Package middleware provides the HTTP request pipeline: request
// identification, client metadata extraction, payload gates, session
// resolution with security validation, rate limiting, availability
// degradation, and error envelope rendering.
package middleware
