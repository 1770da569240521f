package common

import "fmt"

// StoreErrType ...
type StoreErrType uint32

const (
	// KeyNotFound ...
	KeyNotFound StoreErrType = iota
	// Corrupt is returned when a persisted record cannot be decoded.
	Corrupt
	// Closed is returned by operations on a closed store.
	Closed
	// Io wraps failures of the underlying database.
	Io
)

// StoreErr ...
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
	cause    error
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// WrapStoreErr is NewStoreErr with an underlying cause, exposed through
// Unwrap.
func WrapStoreErr(dataType string, errType StoreErrType, key string, cause error) StoreErr {
	err := NewStoreErr(dataType, errType, key)
	err.cause = cause
	return err
}

// Error ...
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case Corrupt:
		m = "Corrupt"
	case Closed:
		m = "Closed"
	case Io:
		m = "IO"
	}

	if e.cause != nil {
		return fmt.Sprintf("%s, %s, %s: %v", e.dataType, e.key, m, e.cause)
	}
	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// Unwrap returns the cause of the error, if any.
func (e StoreErr) Unwrap() error {
	return e.cause
}

// IsStore checks that an error is of type StoreErr and that its code matches
// the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
