package mtapi

import (
	"errors"
	"fmt"

	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
)

// ErrNotFound matches every *NotFoundError
var ErrNotFound = errors.New("not found")

// NotFoundError reports an unknown route or station id
type NotFoundError struct {
	Kind string // "route" or "station"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no such %s: %s", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) hold
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConfigError is a construction failure, fatal at startup
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FetchError is a failed feed retrieval; the previous snapshot stays published
type FetchError = gtfsrt.FetchError

// QueryError is a malformed request parameter
type QueryError struct{ Msg string }

func (e *QueryError) Error() string { return e.Msg }
