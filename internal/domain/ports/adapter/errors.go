package adapter

import (
	"errors"
	"fmt"
)

// DefinitiveError marks a transport failure that will not heal on retry
// (protocol errors, rejected requests, malformed payloads). A poll loop that
// sees one synthesizes a failed job instead of retrying silently forever.
// Anything else returned by a backend call is treated as transient.
type DefinitiveError struct {
	Op  string
	Err error
}

func (e *DefinitiveError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DefinitiveError) Unwrap() error { return e.Err }

func Definitive(op string, err error) error {
	return &DefinitiveError{Op: op, Err: err}
}

func IsDefinitive(err error) bool {
	var de *DefinitiveError
	return errors.As(err, &de)
}
