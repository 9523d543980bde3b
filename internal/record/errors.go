package record

import "errors"

var (
	// ErrAdapterNotSet is returned when a CRUD operation runs before an adapter was configured.
	ErrAdapterNotSet = errors.New("database adapter should be set before use")
	// ErrRecordNotPersisted is returned by Delete on a record with no persisted identity.
	ErrRecordNotPersisted = errors.New("record does not exist")
	// ErrMissingPrimaryKey is returned when a row or the record's fields lack a primary key column.
	ErrMissingPrimaryKey = errors.New("primary key column not found")
	// ErrPrimaryKeyArity is returned by FindByPk when the number of values does not match the key.
	ErrPrimaryKeyArity = errors.New("primary key value count mismatch")
)
