package pg

import "errors"

var (
	ErrEmptyConnectionURL    = errors.New("pg: empty database connection URL")
	ErrFailedToParseDBConfig = errors.New("pg: failed to parse db config")
	ErrDBNotReady            = errors.New("pg: database did not become ready within the given time period")
	ErrHealthcheckFailed     = errors.New("pg: database healthcheck failed")
	ErrMigrationFailed       = errors.New("pg: migration failed")
)
