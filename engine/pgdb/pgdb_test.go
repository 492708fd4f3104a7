package pgdb

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifyErrorUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	classified := adapter{}.ClassifyError(err)
	assert.ErrorContains(t, classified, "duplicate key value")
}

func TestClassifyErrorNonIntegrityCode(t *testing.T) {
	err := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	classified := adapter{}.ClassifyError(err)
	assert.NotNil(t, classified)
}

func TestDialectShapePgsql(t *testing.T) {
	d := adapter{}.Dialect()
	assert.Equal(t, "pgsql", d.Name)
	assert.True(t, d.SupportsReturning)
	assert.True(t, d.SupportsBareOffset)
}

func TestNeedsQuotingPgsql(t *testing.T) {
	assert.False(t, needsQuoting("account"))
	assert.True(t, needsQuoting("Account"))
	assert.True(t, needsQuoting("2fast"))
}
