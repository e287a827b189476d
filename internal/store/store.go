// Package store holds the postgres, redis, elasticsearch and mongo adapters
// behind the pipeline and guardrail ports.
package store

import "errors"

var (
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
	ErrNotFound    = errors.New("RESOURCE_NOT_FOUND")
)

type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Warn(string, map[string]interface{}) {}

func orNop(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}
	return log
}
