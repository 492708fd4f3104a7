package mysqldb

import (
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestClassifyErrorDuplicateEntry(t *testing.T) {
	err := &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}
	classified := adapter{}.ClassifyError(err)
	assert.ErrorContains(t, classified, "Duplicate entry")
}

func TestClassifyErrorOtherMySQLError(t *testing.T) {
	err := &mysqldriver.MySQLError{Number: 1146, Message: "Table doesn't exist"}
	classified := adapter{}.ClassifyError(err)
	assert.NotNil(t, classified)
}

func TestNeedsQuotingMySQL(t *testing.T) {
	assert.False(t, needsQuoting("account"))
	assert.True(t, needsQuoting("Account"))
	assert.True(t, needsQuoting("2fast"))
}

func TestDialectShapeMySQL(t *testing.T) {
	d := adapter{}.Dialect()
	assert.Equal(t, "mysql", d.Name)
	assert.False(t, d.SupportsReturning)
	assert.False(t, d.SupportsBareOffset)
}

func TestLazyModeUnsupportedMySQL(t *testing.T) {
	_, err := adapter{}.NewCursor(nil, nil, "", nil, 0)
	assert.Error(t, err)
}
