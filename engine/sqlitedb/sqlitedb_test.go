package sqlitedb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyErrorIntegrity(t *testing.T) {
	err := errors.New("UNIQUE constraint failed: account.name")
	classified := adapter{}.ClassifyError(err)
	assert.ErrorContains(t, classified, "UNIQUE constraint failed")
}

func TestClassifyErrorDriverFailure(t *testing.T) {
	err := errors.New("database is locked")
	classified := adapter{}.ClassifyError(err)
	assert.NotNil(t, classified)
}

func TestClassifyErrorNilIsNil(t *testing.T) {
	assert.Nil(t, adapter{}.ClassifyError(nil))
}

func TestNeedsQuoting(t *testing.T) {
	assert.False(t, needsQuoting("account"))
	assert.False(t, needsQuoting("_private"))
	assert.True(t, needsQuoting("2fast"))
	assert.True(t, needsQuoting("user name"))
	assert.True(t, needsQuoting("order"))
}

func TestLazyModeUnsupported(t *testing.T) {
	_, err := adapter{}.NewCursor(nil, nil, "", nil, 0)
	assert.Error(t, err)
}

func TestDialectShape(t *testing.T) {
	d := adapter{}.Dialect()
	assert.Equal(t, "sqlite", d.Name)
	assert.False(t, d.SupportsReturning)
	assert.True(t, d.SupportsBareOffset)
}
