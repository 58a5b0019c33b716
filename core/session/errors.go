package session

import "errors"

var (
	// ErrNotFound is returned when a session cannot be found in the store.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when a session exists but has been idle past its TTL.
	ErrExpired = errors.New("session has expired")
	// ErrEnded is returned when an operation targets a session that was already ended.
	ErrEnded = errors.New("session already ended")
	// ErrMissingIP is returned when creating a session without a client IP.
	ErrMissingIP = errors.New("client IP is required")
	// ErrKeyGeneration is returned when the random session key cannot be generated.
	ErrKeyGeneration = errors.New("failed to generate session key")
	// ErrSaveSession is returned when persisting a session fails.
	ErrSaveSession = errors.New("failed to save session")
)
