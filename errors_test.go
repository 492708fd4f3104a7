package qdb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	driverErr := errors.New("duplicate key")
	err := wrapDriverErr(ErrIntegrityFailure, "INSERT INTO t VALUES (?)", []any{1}, driverErr)

	assert.True(t, errors.Is(err, ErrIntegrityFailure))
	// IntegrityFailure is a subclass of DriverFailure (spec §7).
	assert.True(t, errors.Is(err, ErrDriverFailure))
}

func TestErrorUnwrapExposesDriverError(t *testing.T) {
	driverErr := errors.New("boom")
	err := wrapDriverErr(ErrDriverFailure, "", nil, driverErr)

	var qe *Error
	require := assert.New(t)
	require.True(errors.As(err, &qe))
	require.Equal(driverErr, qe.Unwrap())
}

func TestWrapDriverErrNilIsNil(t *testing.T) {
	assert.Nil(t, wrapDriverErr(ErrDriverFailure, "", nil, nil))
}

func TestBadArgumentIsErrBadArgument(t *testing.T) {
	err := badArgument("bad value: %d", 42)
	assert.True(t, errors.Is(err, ErrBadArgument))
}

func TestRollbackIsDistinctFromTaxonomy(t *testing.T) {
	assert.False(t, errors.Is(Rollback, ErrBadArgument))
	assert.False(t, errors.Is(Rollback, ErrDriverFailure))
	assert.Equal(t, "qdb: rollback requested", Rollback.Error())
}
